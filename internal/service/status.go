package service

import "github.com/cobrix/billing-jobs/internal/domain/model"

// statusFromProgress maps an engine's aggregate outcome to a terminal run
// status. Any progress downgrades a would-be failure to PARTIAL; there is no
// error-percentage threshold.
func statusFromProgress(errCount, progressed int64) model.RunStatus {
	switch {
	case errCount > 0 && progressed > 0:
		return model.RunStatusPartial
	case errCount > 0:
		return model.RunStatusFailed
	case progressed > 0:
		return model.RunStatusSuccess
	default:
		return model.RunStatusNoOp
	}
}

// maxErrorSamples bounds how many per-item errors a run's metadata carries.
// Full counts always land in counters; the samples are for triage only.
const maxErrorSamples = 20

// truncateSamples returns at most maxErrorSamples entries from errs.
func truncateSamples[T any](errs []T) []T {
	if len(errs) <= maxErrorSamples {
		return errs
	}
	return errs[:maxErrorSamples]
}
