package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Lock keys scope mutual exclusion per job and unit of work. Two invocations
// that would touch the same data derive the same key; unrelated work never
// contends.

// AnchorLockKey serializes anchor runs per target date.
func AnchorLockKey(targetDateAR string) string {
	return fmt.Sprintf("billing:run_anchor:%s", targetDateAR)
}

// PrepareBatchLockKey serializes batch preparation per adapter and date.
func PrepareBatchLockKey(adapter, targetDateAR string) string {
	return fmt.Sprintf("billing:prepare_batch:%s:%s", adapter, targetDateAR)
}

// ExportBatchLockKey serializes export of a single prepared batch.
func ExportBatchLockKey(batchID string) string {
	return fmt.Sprintf("billing:export_batch:%s", batchID)
}

// BulkExportLockKey serializes the export sweep per adapter and date.
func BulkExportLockKey(adapter, targetDateAR string) string {
	return fmt.Sprintf("billing:export_batch:%s:%s", adapter, targetDateAR)
}

// ReconcileLockKey serializes imports of one response file against one
// outbound batch. Replaying the identical file contends on the same key.
func ReconcileLockKey(outboundBatchID, fileHash string) string {
	return fmt.Sprintf("billing:reconcile:%s:%s", outboundBatchID, fileHash)
}

// FallbackCreateChargeLockKey serializes fallback creation for one charge.
func FallbackCreateChargeLockKey(chargeID string) string {
	return fmt.Sprintf("billing:fallback_create:charge:%s", chargeID)
}

// FallbackCreateSweepLockKey serializes the fallback creation sweep per date.
func FallbackCreateSweepLockKey(targetDateAR string) string {
	return fmt.Sprintf("billing:fallback_create:%s", targetDateAR)
}

// FallbackSyncIntentLockKey serializes status sync for one payment intent.
func FallbackSyncIntentLockKey(intentID string) string {
	return fmt.Sprintf("billing:fallback_status_sync:intent:%s", intentID)
}

// FallbackSyncSweepLockKey serializes the provider-wide sync per date.
func FallbackSyncSweepLockKey(provider, targetDateAR string) string {
	return fmt.Sprintf("billing:fallback_status_sync:%s:%s", provider, targetDateAR)
}

// FileHash returns the lowercase hex SHA-256 of a response file's bytes.
func FileHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
