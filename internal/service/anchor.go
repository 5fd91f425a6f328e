package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cobrix/billing-jobs/internal/core"
	"github.com/cobrix/billing-jobs/internal/domain/billing"
	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// AnchorJobEngines groups the ports the anchor job drives. Rollout and
// Directory are optional; when either is nil, eligibility filtering is
// unsupported and the engine receives the caller's agency set unchanged.
type AnchorJobEngines struct {
	Anchor    core.AnchorEngine // Required: anchor cycle engine
	Rollout   core.RolloutResolver
	Directory core.AgencyDirectory
}

// AnchorJobOptions groups dependencies for AnchorJob.
type AnchorJobOptions struct {
	Envelope      *Envelope        // Required: execution envelope
	Engines       AnchorJobEngines // Required: Engines.Anchor must be set
	Calendar      *billing.Calendar
	RolloutGating bool
	Logger        *slog.Logger
}

// AnchorJob wraps the anchor engine run for one calendar day: it resolves
// which agencies are eligible for automated collections, takes the per-date
// lock, and records the engine's progress under the run ledger.
type AnchorJob struct {
	envelope      *Envelope
	engines       AnchorJobEngines
	calendar      *billing.Calendar
	rolloutGating bool
	logger        *slog.Logger
}

// NewAnchorJob constructs an AnchorJob.
func NewAnchorJob(opts AnchorJobOptions) (*AnchorJob, error) {
	if opts.Envelope == nil {
		return nil, errors.New("Envelope is required")
	}
	if opts.Engines.Anchor == nil {
		return nil, errors.New("AnchorEngine is required")
	}
	if opts.Calendar == nil {
		opts.Calendar = billing.NewCalendar(nil, nil)
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "anchor_job")
	}

	return &AnchorJob{
		envelope:      opts.Envelope,
		engines:       opts.Engines,
		calendar:      opts.Calendar,
		rolloutGating: opts.RolloutGating,
		logger:        logger,
	}, nil
}

// AnchorRunParams describes one anchor job invocation.
type AnchorRunParams struct {
	// TargetDateAR defaults to today in the billing timezone.
	TargetDateAR string
	OverrideFX   *float64
	ActorUserID  string
	Source       model.RunSource
	// AgencyIDs narrows the run to an explicit agency subset. Rollout
	// filtering still applies on top of it.
	AgencyIDs []string
}

// Run executes the anchor job under the envelope. A day with no eligible
// agencies finalizes NO_OP without touching the engine.
func (j *AnchorJob) Run(ctx context.Context, params AnchorRunParams) (*JobResult, error) {
	if !params.Source.Valid() {
		return nil, fmt.Errorf("invalid run source: %q", params.Source)
	}

	targetDate := params.TargetDateAR
	if targetDate == "" {
		targetDate = j.calendar.LocalDate(j.envelope.Now())
	}
	if _, err := j.calendar.ParseDate(targetDate); err != nil {
		return nil, err
	}

	return j.envelope.Execute(ctx, RunRequest{
		JobName:      model.JobRunAnchor,
		Source:       params.Source,
		LockKey:      billing.AnchorLockKey(targetDate),
		TargetDateAR: &targetDate,
	}, func(ctx context.Context) (*Outcome, error) {
		agencyIDs, filtered, err := j.resolveEligibleAgencies(ctx, params.AgencyIDs)
		if err != nil {
			return nil, err
		}
		if filtered && len(agencyIDs) == 0 {
			return &Outcome{
				Status:   model.RunStatusNoOp,
				Reason:   "no_eligible_agencies",
				Counters: model.Counters{"agencies_eligible": 0},
			}, nil
		}

		summary, err := j.engines.Anchor.Run(ctx, model.AnchorParams{
			TargetDateAR: targetDate,
			OverrideFX:   params.OverrideFX,
			ActorUserID:  params.ActorUserID,
			AgencyIDs:    agencyIDs,
		})
		if err != nil {
			return nil, fmt.Errorf("anchor engine run: %w", err)
		}

		outcome := &Outcome{
			Status: statusFromProgress(int64(len(summary.Errors)), summary.SubscriptionsProcessed),
			Counters: model.Counters{
				"subscriptions_total":     summary.SubscriptionsTotal,
				"subscriptions_processed": summary.SubscriptionsProcessed,
				"cycles_created":          summary.CyclesCreated,
				"charges_created":         summary.ChargesCreated,
				"attempts_created":        summary.AttemptsCreated,
				"skipped_idempotent":      summary.SkippedIdempotent,
				"errors_count":            int64(len(summary.Errors)),
			},
		}
		if filtered {
			outcome.Counters["agencies_eligible"] = int64(len(agencyIDs))
		}
		if len(summary.Errors) > 0 {
			outcome.Metadata = model.Metadata{
				"anchor_errors": truncateSamples(summary.Errors),
			}
			if outcome.Status == model.RunStatusFailed {
				outcome.Reason = "all_subscriptions_failed"
			}
		}
		return outcome, nil
	})
}

// resolveEligibleAgencies intersects active agencies with the rollout map.
// The second return reports whether filtering was actually applied; callers
// must not treat an unfiltered empty slice as "nobody is eligible".
func (j *AnchorJob) resolveEligibleAgencies(ctx context.Context, explicit []string) ([]string, bool, error) {
	candidates := explicit
	if len(candidates) == 0 {
		if j.engines.Directory == nil {
			return explicit, false, nil
		}
		active, err := j.engines.Directory.ListActiveAgencyIDs(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("list active agencies: %w", err)
		}
		candidates = active
	}

	if !j.rolloutGating || j.engines.Rollout == nil {
		return candidates, len(explicit) == 0, nil
	}

	rollout, err := j.engines.Rollout.GetAgencyCollectionsRolloutMap(ctx, candidates)
	if err != nil {
		return nil, false, fmt.Errorf("resolve collections rollout: %w", err)
	}

	eligible := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if rollout[id] {
			eligible = append(eligible, id)
		}
	}

	if j.logger != nil && len(eligible) < len(candidates) {
		j.logger.DebugContext(ctx, "rollout gating excluded agencies",
			"candidates", len(candidates),
			"eligible", len(eligible),
		)
	}
	return eligible, true, nil
}
