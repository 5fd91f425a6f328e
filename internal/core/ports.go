// Package core defines the ports the billing job layer is built against:
// locking, the run ledger, the billing engines, and the overview read model.
package core

import (
	"context"
	"time"

	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// LockService provides non-blocking distributed mutual exclusion per lock key.
type LockService interface {
	// Acquire attempts to take the lock for ownerRunID with the given TTL.
	// Return semantics:
	//   - (true, nil): lock acquired; caller must Release on every exit path
	//   - (false, nil): another live owner holds the key; caller proceeds as skipped
	//   - (false, err): backend failure; lock state unknown, nothing was acquired
	// An expired holder does not block acquisition; the new owner takes over
	// atomically. Acquire never waits.
	Acquire(ctx context.Context, key, ownerRunID string, ttl time.Duration) (bool, error)

	// Release frees the lock if ownerRunID still holds it. Releasing a key
	// held by someone else, or not held at all, is a no-op.
	Release(ctx context.Context, key, ownerRunID string) error
}

// RunLedger records job runs. Every execution, including skipped ones,
// leaves exactly one row that transitions RUNNING to a terminal status once.
type RunLedger interface {
	// Start inserts a RUNNING run and returns it with its generated ID.
	Start(ctx context.Context, params model.StartRunParams) (*model.JobRun, error)

	// Finish applies the terminal state to a RUNNING run. Finishing an
	// already-terminal run returns model.ErrRunFinalized and changes nothing.
	Finish(ctx context.Context, params model.FinishRunParams) (*model.JobRun, error)

	// ListRecent returns the most recently started runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.JobRun, error)
}

// AnchorEngine opens billing cycles and creates charges for the target date.
// The engine owns all business math; the job layer only gates and records.
type AnchorEngine interface {
	Run(ctx context.Context, params model.AnchorParams) (*model.AnchorSummary, error)
}

// BatchEngine owns presentment batch preparation, export, and response import.
type BatchEngine interface {
	// PreparePresentmentBatch assembles the outbound batch for an adapter and
	// date. With DryRun set it computes the batch without persisting anything.
	PreparePresentmentBatch(ctx context.Context, params model.PrepareBatchParams) (*model.PrepareBatchResult, error)

	// ExportPresentmentBatch exports one prepared batch by ID.
	ExportPresentmentBatch(ctx context.Context, batchID string) (*model.ExportBatchResult, error)

	// ExportPendingPreparedBatches exports every prepared-but-unexported batch
	// for the adapter and date.
	ExportPendingPreparedBatches(ctx context.Context, params model.BulkExportParams) (*model.BulkExportResult, error)

	// ImportResponseBatch applies a bank response file to its outbound batch.
	// A file whose hash was imported before reports AlreadyImported and
	// changes nothing.
	ImportResponseBatch(ctx context.Context, params model.ImportResponseParams) (*model.ImportResponseResult, error)
}

// FallbackEngine owns the alternate collection channel for rejected charges.
type FallbackEngine interface {
	CreateFallbackForEligibleCharges(ctx context.Context, params model.FallbackCreateParams) (*model.FallbackCreateResult, error)
	SyncFallbackStatuses(ctx context.Context, params model.FallbackSyncParams) (*model.FallbackSyncResult, error)
}

// RolloutResolver reports which agencies have the collections flow enabled.
type RolloutResolver interface {
	// GetAgencyCollectionsRolloutMap returns agencyID -> enabled for the given
	// agencies. Agencies missing from the map are treated as disabled.
	GetAgencyCollectionsRolloutMap(ctx context.Context, agencyIDs []string) (map[string]bool, error)
}

// AgencyDirectory lists agencies that currently have billable subscriptions.
type AgencyDirectory interface {
	ListActiveAgencyIDs(ctx context.Context) ([]string, error)
}
