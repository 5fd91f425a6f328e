package model

import (
	"fmt"
	"strings"
)

// FallbackProvider identifies the alternate collection channel used for
// charges the primary presentment flow could not collect.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type FallbackProvider string

const (
	// ProviderCIGQR is the interoperable QR payment intent provider.
	ProviderCIGQR FallbackProvider = "CIG_QR"
	// ProviderMP is the MercadoPago checkout provider.
	ProviderMP FallbackProvider = "MP"
	// ProviderOther covers manually settled fallback channels.
	ProviderOther FallbackProvider = "OTHER"
)

// Valid returns true if the FallbackProvider is a known provider.
func (p FallbackProvider) Valid() bool {
	return p == ProviderCIGQR || p == ProviderMP || p == ProviderOther
}

// UnmarshalText implements encoding.TextUnmarshaler for FallbackProvider.
func (p *FallbackProvider) UnmarshalText(text []byte) error {
	v := FallbackProvider(strings.ToUpper(strings.TrimSpace(string(text))))
	if v.Valid() {
		*p = v
		return nil
	}
	return fmt.Errorf("invalid FallbackProvider: %q", string(text))
}

// AnchorParams describes one anchor engine invocation.
type AnchorParams struct {
	TargetDateAR string   `json:"target_date_ar"`
	OverrideFX   *float64 `json:"override_fx,omitempty"`
	ActorUserID  string   `json:"actor_user_id"`
	AgencyIDs    []string `json:"agency_ids,omitempty"`
}

// AnchorError reports a per-subscription failure inside an anchor run.
type AnchorError struct {
	AgencyID       string `json:"agency_id"`
	SubscriptionID string `json:"subscription_id"`
	Message        string `json:"message"`
}

// AnchorSummary is the anchor engine's progress report for one run.
type AnchorSummary struct {
	SubscriptionsTotal     int64         `json:"subscriptions_total"`
	SubscriptionsProcessed int64         `json:"subscriptions_processed"`
	CyclesCreated          int64         `json:"cycles_created"`
	ChargesCreated         int64         `json:"charges_created"`
	AttemptsCreated        int64         `json:"attempts_created"`
	SkippedIdempotent      int64         `json:"skipped_idempotent"`
	Errors                 []AnchorError `json:"errors,omitempty"`
}

// PrepareBatchParams describes one presentment batch preparation.
type PrepareBatchParams struct {
	TargetDateAR string `json:"target_date_ar"`
	Adapter      string `json:"adapter"`
	DryRun       bool   `json:"dry_run"`
}

// PrepareBatchResult reports the outcome of preparing a presentment batch.
// AmountTotal is expressed in minor currency units.
type PrepareBatchResult struct {
	BatchID         *string `json:"batch_id,omitempty"`
	ChargesIncluded int64   `json:"charges_included"`
	AmountTotal     int64   `json:"amount_total"`
	AlreadyPrepared bool    `json:"already_prepared"`
	DryRun          bool    `json:"dry_run"`
}

// ExportBatchResult reports the outcome of exporting a single prepared batch.
type ExportBatchResult struct {
	Exported        bool    `json:"exported"`
	AlreadyExported bool    `json:"already_exported"`
	FileRef         *string `json:"file_ref,omitempty"`
}

// BulkExportParams describes an export sweep over pending prepared batches.
type BulkExportParams struct {
	Adapter      string `json:"adapter"`
	TargetDateAR string `json:"target_date_ar"`
}

// BatchError reports a per-batch failure inside a bulk export.
type BatchError struct {
	BatchID string `json:"batch_id"`
	Message string `json:"message"`
}

// BulkExportResult aggregates a bulk export sweep.
type BulkExportResult struct {
	Considered      int64        `json:"considered"`
	Exported        int64        `json:"exported"`
	AlreadyExported int64        `json:"already_exported"`
	Errors          []BatchError `json:"errors,omitempty"`
}

// ImportResponseParams describes one bank response file import.
// FileHash is the lowercase hex SHA-256 of FileBytes.
type ImportResponseParams struct {
	OutboundBatchID string `json:"outbound_batch_id"`
	FileName        string `json:"file_name"`
	FileBytes       []byte `json:"-"`
	FileHash        string `json:"file_hash"`
}

// ImportResponseResult reports the outcome of importing a response file.
// Rejected rows are data outcomes, not processing failures.
type ImportResponseResult struct {
	AlreadyImported bool  `json:"already_imported"`
	RowsTotal       int64 `json:"rows_total"`
	RowsApplied     int64 `json:"rows_applied"`
	RowsRejected    int64 `json:"rows_rejected"`
	ChargesPaid     int64 `json:"charges_paid"`
	ChargesRejected int64 `json:"charges_rejected"`
}

// FallbackCreateParams describes a fallback intent creation pass.
// ChargeID narrows the pass to a single charge; otherwise the engine sweeps
// eligible charges for the target date.
type FallbackCreateParams struct {
	ChargeID     *string          `json:"charge_id,omitempty"`
	TargetDateAR string           `json:"target_date_ar"`
	Provider     FallbackProvider `json:"provider"`
}

// FallbackSkip reports why a considered charge did not get a fallback intent.
type FallbackSkip struct {
	ChargeID string `json:"charge_id"`
	Reason   string `json:"reason"`
}

// FallbackCreateResult aggregates a fallback creation pass.
type FallbackCreateResult struct {
	Considered int64          `json:"considered"`
	Created    int64          `json:"created"`
	Skipped    []FallbackSkip `json:"skipped,omitempty"`
}

// FallbackSyncParams describes a fallback status synchronization pass.
// OnlyAutoSyncEnabled restricts the pass to agencies that opted into
// automatic syncing; cron ticks set it, manual runs do not.
type FallbackSyncParams struct {
	IntentID            *string          `json:"intent_id,omitempty"`
	Provider            FallbackProvider `json:"provider"`
	TargetDateAR        string           `json:"target_date_ar"`
	OnlyAutoSyncEnabled bool             `json:"only_auto_sync_enabled"`
}

// FallbackError reports a per-intent failure inside a sync pass.
type FallbackError struct {
	IntentID string `json:"intent_id"`
	Message  string `json:"message"`
}

// FallbackSyncResult aggregates a fallback status synchronization pass.
type FallbackSyncResult struct {
	Checked int64           `json:"checked"`
	Updated int64           `json:"updated"`
	Expired int64           `json:"expired"`
	Errors  []FallbackError `json:"errors,omitempty"`
}
