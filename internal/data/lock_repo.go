package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/cobrix/billing-jobs/internal/errors"
)

// LockRepoConfig holds configuration options for the Postgres lock repository.
type LockRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// LockRepo implements distributed job locks on top of a job_locks table.
//
// Acquire is a single compare-and-set upsert: the insert wins when no row
// exists, and the conflict arm takes over only when the current holder's
// expiry has passed. There is no read-then-write window, so two contenders
// racing on the same key resolve inside Postgres and exactly one wins.
type LockRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewLockRepo creates a new LockRepo with the given database connection and configuration.
func NewLockRepo(db *sql.DB, cfg LockRepoConfig) *LockRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &LockRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const acquireLockSQL = `
	INSERT INTO job_locks (lock_key, owner_run_id, acquired_at, expires_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (lock_key) DO UPDATE
	SET owner_run_id = EXCLUDED.owner_run_id,
	    acquired_at  = EXCLUDED.acquired_at,
	    expires_at   = EXCLUDED.expires_at
	WHERE job_locks.expires_at <= $3
	RETURNING owner_run_id
`

// Acquire attempts to take the lock without blocking. A row coming back means
// this owner now holds the key; no row means a live holder kept it.
func (r *LockRepo) Acquire(ctx context.Context, key, ownerRunID string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("lock key cannot be empty")
	}
	if ownerRunID == "" {
		return false, errors.New("lock owner cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	now := r.timeProvider.Now().UTC()
	expiresAt := now.Add(ttl)

	var holder string
	err := r.DB.QueryRowContext(ctx, acquireLockSQL, key, ownerRunID, now, expiresAt).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire job lock %s: %w", key, apperrors.MapDBError(err))
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job lock acquired",
			"lock_key", key,
			"owner_run_id", holder,
			"expires_at", expiresAt,
		)
	}
	return true, nil
}

// Release frees the lock if ownerRunID still holds it. Someone else's lock,
// or a key with no row, is left untouched.
func (r *LockRepo) Release(ctx context.Context, key, ownerRunID string) error {
	if key == "" {
		return errors.New("lock key cannot be empty")
	}
	if ownerRunID == "" {
		return errors.New("lock owner cannot be empty")
	}

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM job_locks
		WHERE lock_key = $1 AND owner_run_id = $2
	`, key, ownerRunID)
	if err != nil {
		return fmt.Errorf("release job lock %s: %w", key, apperrors.MapDBError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release rows affected: %w", err)
	}
	if rowsAffected == 0 && r.logger != nil {
		// A TTL takeover can legitimately beat a slow holder to this point.
		r.logger.WarnContext(ctx, "release found no lock owned by this run",
			"lock_key", key,
			"owner_run_id", ownerRunID,
		)
	}
	return nil
}

// PruneExpired removes lock rows whose expiry passed more than keep ago.
// Expired rows do not block acquisition, so this is housekeeping only.
func (r *LockRepo) PruneExpired(ctx context.Context, keep time.Duration) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	cutoff := r.timeProvider.Now().UTC().Add(-keep)

	res, err := r.DB.ExecContext(ctx, `DELETE FROM job_locks WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune expired job locks: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return rowsAffected, nil
}
