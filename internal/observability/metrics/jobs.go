package metrics

import (
	"time"

	"github.com/cobrix/billing-jobs/internal/domain/model"
	obserrors "github.com/cobrix/billing-jobs/internal/observability/errors"
	"github.com/cobrix/billing-jobs/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess       = "success"
	ResultPartial       = "partial"
	ResultNoop          = "noop"
	ResultError         = "error"
	ResultSkippedLocked = "skipped_locked"
)

// ResultTag maps a terminal run status to its metric result tag.
func ResultTag(status model.RunStatus) string {
	switch status {
	case model.RunStatusSuccess:
		return ResultSuccess
	case model.RunStatusPartial:
		return ResultPartial
	case model.RunStatusNoOp:
		return ResultNoop
	case model.RunStatusFailed:
		return ResultError
	case model.RunStatusSkippedLocked:
		return ResultSkippedLocked
	default:
		return "unknown"
	}
}

// JobRunMetric captures one finished envelope execution for metric emission.
type JobRunMetric struct {
	Job      string
	Source   string
	Status   model.RunStatus
	Duration time.Duration
	Err      error
}

// EmitJobRun emits standardised run lifecycle metrics: a count per run plus
// the execution timing.
func EmitJobRun(sink statsd.Sink, in JobRunMetric) {
	if sink == nil {
		return
	}

	result := ResultTag(in.Status)
	tags := map[string]string{
		"job":    in.Job,
		"source": in.Source,
		"result": result,
	}

	if in.Err != nil && result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.run", 1, tags)
	sink.Timing("job.duration", in.Duration, CloneTags(tags))
}

// TickMetric captures one cron tick for metric emission.
type TickMetric struct {
	Stages   int
	Duration time.Duration
	Err      error
}

// EmitCronTick emits the tick count and duration, tagged with the outcome.
func EmitCronTick(sink statsd.Sink, in TickMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	if in.Err != nil {
		result = ResultError
	}
	tags := map[string]string{"result": result}

	sink.Count("cron.tick", 1, tags)
	sink.Gauge("cron.stages", float64(in.Stages), CloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("cron.tick_duration", in.Duration, CloneTags(tags))
	}
}

// EmitOverviewGauges publishes a named gauge set in one pass, used by the
// overview publisher to export snapshot values.
func EmitOverviewGauges(sink statsd.Sink, gauges map[string]float64) {
	if sink == nil {
		return
	}
	for name, value := range gauges {
		if name == "" {
			continue
		}
		sink.Gauge("overview."+name, value, nil)
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
