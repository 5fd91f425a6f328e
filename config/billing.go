package config

import (
	"strings"
	"time"

	"github.com/cobrix/billing-jobs/internal/domain/model"
)

// Lock backend names accepted by BILLING_LOCK_BACKEND.
const (
	LockBackendPostgres = "postgres"
	LockBackendRedis    = "redis"
)

// BillingConfig contains the billing job orchestration knobs. All fields are
// optional with documented fallbacks; Sanitize never fails the process over a
// malformed value, it falls back and the caller logs what it got.
type BillingConfig struct {
	// Enabled gates the whole cron tick. Disabled ticks report without
	// invoking any job.
	Enabled bool `env:"CRON_ENABLED" envDefault:"false"`

	// Timezone is the IANA zone the billing calendar lives in. Unloadable
	// zones fall back to UTC at bootstrap.
	Timezone string `env:"TIMEZONE" envDefault:"America/Argentina/Buenos_Aires"`

	// Adapter is the default presentment batch adapter (bank format).
	Adapter string `env:"ADAPTER" envDefault:"galicia"`

	// AutoExport enables the export stage inside the cron tick.
	AutoExport bool `env:"AUTO_EXPORT" envDefault:"false"`

	// AutoReconcile enables the reconcile stage inside the cron tick.
	AutoReconcile bool `env:"AUTO_RECONCILE" envDefault:"false"`

	// FallbackProvider is the default alternate collection channel.
	// Invalid values fall back to CIG_QR.
	FallbackProvider string `env:"FALLBACK_PROVIDER" envDefault:"CIG_QR"`

	// FallbackEnabled gates fallback creation entirely; disabled means the
	// fallback jobs do not even record runs.
	FallbackEnabled bool `env:"FALLBACK_ENABLED" envDefault:"false"`

	// FallbackAutoSync enables the fallback status sync stage in the tick.
	FallbackAutoSync bool `env:"FALLBACK_AUTO_SYNC" envDefault:"false"`

	// LockTTLSeconds bounds how long a crashed holder blocks the next run.
	// Values under 60 clamp to 60.
	LockTTLSeconds int `env:"LOCK_TTL_SECONDS" envDefault:"600"`

	// CutoffHour defers cron batch preparation past this local hour to the
	// next window. -1 disables the cutoff; values outside 0-23 disable it.
	CutoffHour int `env:"EXPORT_CUTOFF_HOUR" envDefault:"-1"`

	// RolloutGating intersects anchor eligibility with the per-agency
	// collections rollout flag. Off means the directory set passes through.
	RolloutGating bool `env:"ROLLOUT_GATING_ENABLED" envDefault:"true"`

	// StaleProcessingHours marks processing debit attempts as stale for the
	// overview. Minimum 1.
	StaleProcessingHours int `env:"STALE_PROCESSING_HOURS" envDefault:"6"`

	// StalePendingHours marks pending debit attempts as stale for the
	// overview. Minimum 1.
	StalePendingHours int `env:"STALE_PENDING_HOURS" envDefault:"24"`

	// Holidays lists non-business dates as YYYY-MM-DD. Unparseable entries
	// are dropped when the calendar is built.
	Holidays []string `env:"HOLIDAYS"`

	// LockBackend selects the distributed lock store: postgres or redis.
	LockBackend string `env:"LOCK_BACKEND" envDefault:"postgres"`

	// TickInterval is the cron tick period. Values under 1s clamp to 1s.
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"60s"`

	// OverviewRecentRuns is how many ledger rows the overview snapshot
	// carries. Clamped to 1-100.
	OverviewRecentRuns int `env:"OVERVIEW_RECENT_RUNS" envDefault:"20"`

	// OverviewInterval is the period of the overview publisher service.
	OverviewInterval time.Duration `env:"OVERVIEW_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to billing configuration values.
func (b *BillingConfig) Sanitize() {
	b.Timezone = strings.TrimSpace(b.Timezone)
	if b.Timezone == "" {
		b.Timezone = "America/Argentina/Buenos_Aires"
	}

	b.Adapter = strings.ToLower(strings.TrimSpace(b.Adapter))
	if b.Adapter == "" {
		b.Adapter = "galicia"
	}

	provider := model.FallbackProvider(strings.ToUpper(strings.TrimSpace(b.FallbackProvider)))
	if !provider.Valid() {
		provider = model.ProviderCIGQR
	}
	b.FallbackProvider = string(provider)

	if b.LockTTLSeconds < 60 {
		b.LockTTLSeconds = 60
	}

	if b.CutoffHour < 0 || b.CutoffHour > 23 {
		b.CutoffHour = -1
	}

	if b.StaleProcessingHours < 1 {
		b.StaleProcessingHours = 1
	}
	if b.StalePendingHours < 1 {
		b.StalePendingHours = 1
	}

	b.LockBackend = strings.ToLower(strings.TrimSpace(b.LockBackend))
	if b.LockBackend != LockBackendPostgres && b.LockBackend != LockBackendRedis {
		b.LockBackend = LockBackendPostgres
	}

	if b.TickInterval < time.Second {
		b.TickInterval = time.Second
	}

	if b.OverviewRecentRuns < 1 {
		b.OverviewRecentRuns = 1
	}
	if b.OverviewRecentRuns > 100 {
		b.OverviewRecentRuns = 100
	}

	if b.OverviewInterval < 10*time.Second {
		b.OverviewInterval = 10 * time.Second
	}
}

// LockTTL returns the lock time-to-live as a duration.
func (b *BillingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

// CutoffConfigured reports whether a batch preparation cutoff hour is active.
func (b *BillingConfig) CutoffConfigured() bool {
	return b.CutoffHour >= 0 && b.CutoffHour <= 23
}

// Provider returns the sanitized fallback provider enum value.
func (b *BillingConfig) Provider() model.FallbackProvider {
	return model.FallbackProvider(b.FallbackProvider)
}

// Location resolves the configured timezone. Callers fall back to UTC and
// warn when the zone cannot be loaded on this host.
func (b *BillingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}
