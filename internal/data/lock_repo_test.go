package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrix/billing-jobs/internal/testutil"
)

func TestLockRepo_Acquire(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("acquire new lock", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})

			ok, err := repo.Acquire(context.Background(), "billing:run_anchor:2025-03-10", "run-a", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	})

	t.Run("contended acquire returns false without error", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})
			ctx := context.Background()

			ok, err := repo.Acquire(ctx, "billing:prepare_batch:cig:2025-03-10", "run-a", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = repo.Acquire(ctx, "billing:prepare_batch:cig:2025-03-10", "run-b", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)

			// Holder unchanged.
			var holder string
			err = db.QueryRowContext(ctx,
				`SELECT owner_run_id FROM job_locks WHERE lock_key = $1`,
				"billing:prepare_batch:cig:2025-03-10",
			).Scan(&holder)
			require.NoError(t, err)
			assert.Equal(t, "run-a", holder)
		})
	})

	t.Run("expired lock is taken over", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			tp := NewFixedTimeProvider(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))
			repo := NewLockRepo(db, LockRepoConfig{TimeProvider: tp})
			ctx := context.Background()

			ok, err := repo.Acquire(ctx, "billing:export_batch:batch-1", "run-a", 10*time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			// Still live: takeover must fail.
			tp.AddTime(9 * time.Minute)
			ok, err = repo.Acquire(ctx, "billing:export_batch:batch-1", "run-b", 10*time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)

			// Past expiry: the CAS arm fires and ownership moves.
			tp.AddTime(2 * time.Minute)
			ok, err = repo.Acquire(ctx, "billing:export_batch:batch-1", "run-b", 10*time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			var holder string
			err = db.QueryRowContext(ctx,
				`SELECT owner_run_id FROM job_locks WHERE lock_key = $1`,
				"billing:export_batch:batch-1",
			).Scan(&holder)
			require.NoError(t, err)
			assert.Equal(t, "run-b", holder)
		})
	})

	t.Run("concurrent contenders resolve to one winner", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})
			ctx := context.Background()

			const contenders = 8
			wins := make(chan bool, contenders)
			runner := testutil.NewConcurrentTestRunner(t, db)

			funcs := make([]func() error, contenders)
			for i := 0; i < contenders; i++ {
				owner := string(rune('a' + i))
				funcs[i] = func() error {
					ok, err := repo.Acquire(ctx, "billing:fallback_create:2025-03-10", "run-"+owner, time.Minute)
					if err != nil {
						return err
					}
					wins <- ok
					return nil
				}
			}

			errs := runner.RunConcurrent(funcs...)
			runner.AssertNoErrors(errs)
			close(wins)

			won := 0
			for ok := range wins {
				if ok {
					won++
				}
			}
			assert.Equal(t, 1, won)
		})
	})

	t.Run("validation", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})
			ctx := context.Background()

			_, err := repo.Acquire(ctx, "", "run-a", time.Minute)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "key cannot be empty")

			_, err = repo.Acquire(ctx, "billing:run_anchor:2025-03-10", "", time.Minute)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "owner cannot be empty")
		})
	})
}

func TestLockRepo_Release(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("release frees the lock for the next owner", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})
			ctx := context.Background()

			ok, err := repo.Acquire(ctx, "billing:reconcile:b1:h1", "run-a", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			err = repo.Release(ctx, "billing:reconcile:b1:h1", "run-a")
			require.NoError(t, err)

			ok, err = repo.Acquire(ctx, "billing:reconcile:b1:h1", "run-b", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	})

	t.Run("release by non-owner keeps the lock", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})
			ctx := context.Background()

			ok, err := repo.Acquire(ctx, "billing:fallback_status_sync:mp:2025-03-10", "run-a", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			err = repo.Release(ctx, "billing:fallback_status_sync:mp:2025-03-10", "run-b")
			require.NoError(t, err)

			var holder string
			err = db.QueryRowContext(ctx,
				`SELECT owner_run_id FROM job_locks WHERE lock_key = $1`,
				"billing:fallback_status_sync:mp:2025-03-10",
			).Scan(&holder)
			require.NoError(t, err)
			assert.Equal(t, "run-a", holder)
		})
	})

	t.Run("release of missing lock is a no-op", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewLockRepo(db, LockRepoConfig{})

			err := repo.Release(context.Background(), "billing:run_anchor:1999-01-01", "run-a")
			assert.NoError(t, err)
		})
	})
}

func TestLockRepo_PruneExpired(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))
		repo := NewLockRepo(db, LockRepoConfig{TimeProvider: tp})
		ctx := context.Background()

		ok, err := repo.Acquire(ctx, "billing:run_anchor:2025-03-09", "run-a", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = repo.Acquire(ctx, "billing:run_anchor:2025-03-10", "run-b", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)

		// One lock expired an hour ago, the other is still live.
		tp.AddTime(61 * time.Minute)
		pruned, err := repo.PruneExpired(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), pruned)

		var remaining int
		err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_locks`).Scan(&remaining)
		require.NoError(t, err)
		assert.Equal(t, 1, remaining)
	})
}
