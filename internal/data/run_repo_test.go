package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobrix/billing-jobs/internal/domain/model"
	"github.com/cobrix/billing-jobs/internal/testutil"
)

func TestRunRepo_Start(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	tests := []struct {
		name    string
		params  model.StartRunParams
		wantErr bool
		errMsg  string
	}{
		{
			name: "minimal run",
			params: model.StartRunParams{
				JobName:   model.JobRunAnchor,
				Source:    model.SourceCron,
				StartedAt: time.Now(),
			},
			wantErr: false,
		},
		{
			name: "run with target date and adapter",
			params: model.StartRunParams{
				JobName:      model.JobPrepareBatch,
				Source:       model.SourceManual,
				StartedAt:    time.Now(),
				TargetDateAR: stringPtr("2025-03-10"),
				Adapter:      stringPtr("cig"),
				Metadata:     model.Metadata{"actor_user_id": "ops-7"},
			},
			wantErr: false,
		},
		{
			name: "invalid job name",
			params: model.StartRunParams{
				JobName:   "invalid",
				Source:    model.SourceCron,
				StartedAt: time.Now(),
			},
			wantErr: true,
			errMsg:  "invalid job name",
		},
		{
			name: "invalid source",
			params: model.StartRunParams{
				JobName:   model.JobRunAnchor,
				Source:    "nobody",
				StartedAt: time.Now(),
			},
			wantErr: true,
			errMsg:  "invalid run source",
		},
		{
			name: "zero started at",
			params: model.StartRunParams{
				JobName: model.JobRunAnchor,
				Source:  model.SourceCron,
			},
			wantErr: true,
			errMsg:  "started at is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.WithAutoDB(t, func(db *sql.DB) {
				repo := NewRunRepo(db, RunRepoConfig{})

				run, err := repo.Start(context.Background(), tt.params)

				if tt.wantErr {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.errMsg)
					assert.Nil(t, run)
					return
				}

				require.NoError(t, err)
				require.NotNil(t, run)

				assert.NotEmpty(t, run.ID)
				assert.Equal(t, tt.params.JobName, run.JobName)
				assert.Equal(t, tt.params.Source, run.Source)
				assert.Equal(t, model.RunStatusRunning, run.Status)
				assert.Nil(t, run.FinishedAt)
				assert.Nil(t, run.DurationMS)
				assert.NotNil(t, run.Counters)
				assert.Empty(t, run.Counters)
				assert.NotZero(t, run.CreatedAt)

				if tt.params.TargetDateAR != nil {
					require.NotNil(t, run.TargetDateAR)
					assert.Equal(t, *tt.params.TargetDateAR, *run.TargetDateAR)
				}
				if tt.params.Adapter != nil {
					require.NotNil(t, run.Adapter)
					assert.Equal(t, *tt.params.Adapter, *run.Adapter)
				}
				if tt.params.Metadata != nil {
					assert.Equal(t, "ops-7", run.Metadata["actor_user_id"])
				}
			})
		})
	}
}

func TestRunRepo_Finish(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("finish success with counters", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			run, err := repo.Start(ctx, model.StartRunParams{
				JobName:   model.JobRunAnchor,
				Source:    model.SourceCron,
				StartedAt: time.Now(),
			})
			require.NoError(t, err)

			finished, err := repo.Finish(ctx, model.FinishRunParams{
				RunID:      run.ID,
				Status:     model.RunStatusSuccess,
				FinishedAt: time.Now(),
				DurationMS: 1200,
				Counters: model.Counters{
					"subscriptions_processed": 10,
					"charges_created":         10,
				},
			})
			require.NoError(t, err)
			require.NotNil(t, finished)

			assert.Equal(t, model.RunStatusSuccess, finished.Status)
			require.NotNil(t, finished.FinishedAt)
			require.NotNil(t, finished.DurationMS)
			assert.Equal(t, int64(1200), *finished.DurationMS)
			assert.Equal(t, int64(10), finished.Counters["charges_created"])
			assert.Nil(t, finished.ErrorMessage)
			assert.Nil(t, finished.ErrorStack)
		})
	})

	t.Run("finish failed with error message", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			run, err := repo.Start(ctx, model.StartRunParams{
				JobName:   model.JobExportBatch,
				Source:    model.SourceManual,
				StartedAt: time.Now(),
			})
			require.NoError(t, err)

			finished, err := repo.Finish(ctx, model.FinishRunParams{
				RunID:        run.ID,
				Status:       model.RunStatusFailed,
				FinishedAt:   time.Now(),
				DurationMS:   40,
				Counters:     model.Counters{"errors_count": 1},
				ErrorMessage: stringPtr("sftp: connection refused"),
			})
			require.NoError(t, err)

			assert.Equal(t, model.RunStatusFailed, finished.Status)
			require.NotNil(t, finished.ErrorMessage)
			assert.Equal(t, "sftp: connection refused", *finished.ErrorMessage)
			assert.Equal(t, int64(1), finished.Counters["errors_count"])
		})
	})

	t.Run("finish is first writer wins", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			run, err := repo.Start(ctx, model.StartRunParams{
				JobName:   model.JobReconcileBatch,
				Source:    model.SourceSystem,
				StartedAt: time.Now(),
			})
			require.NoError(t, err)

			_, err = repo.Finish(ctx, model.FinishRunParams{
				RunID:      run.ID,
				Status:     model.RunStatusNoOp,
				FinishedAt: time.Now(),
				DurationMS: 5,
			})
			require.NoError(t, err)

			// Second finish must not overwrite the terminal row.
			_, err = repo.Finish(ctx, model.FinishRunParams{
				RunID:      run.ID,
				Status:     model.RunStatusFailed,
				FinishedAt: time.Now(),
				DurationMS: 9,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrRunFinalized))

			runs, err := repo.ListRecent(ctx, 10)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, model.RunStatusNoOp, runs[0].Status)
		})
	})

	t.Run("finish unknown run", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})

			_, err := repo.Finish(context.Background(), model.FinishRunParams{
				RunID:      "00000000-0000-0000-0000-000000000000",
				Status:     model.RunStatusSuccess,
				FinishedAt: time.Now(),
				DurationMS: 1,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRunNotFound))
		})
	})

	t.Run("finish validation", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			_, err := repo.Finish(ctx, model.FinishRunParams{
				Status:     model.RunStatusSuccess,
				FinishedAt: time.Now(),
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "run id is required")

			_, err = repo.Finish(ctx, model.FinishRunParams{
				RunID:      "some-id",
				Status:     model.RunStatusRunning,
				FinishedAt: time.Now(),
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "terminal")

			_, err = repo.Finish(ctx, model.FinishRunParams{
				RunID:      "some-id",
				Status:     model.RunStatusSuccess,
				FinishedAt: time.Now(),
				DurationMS: -1,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "duration")
		})
	})

	t.Run("finish merges metadata", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			run, err := repo.Start(ctx, model.StartRunParams{
				JobName:   model.JobFallbackCreate,
				Source:    model.SourceCron,
				StartedAt: time.Now(),
				Metadata:  model.Metadata{"actor_user_id": "cron"},
			})
			require.NoError(t, err)

			// Nil metadata on finish keeps the start metadata.
			finished, err := repo.Finish(ctx, model.FinishRunParams{
				RunID:      run.ID,
				Status:     model.RunStatusSuccess,
				FinishedAt: time.Now(),
				DurationMS: 10,
			})
			require.NoError(t, err)
			assert.Equal(t, "cron", finished.Metadata["actor_user_id"])
		})
	})
}

func TestRunRepo_ListRecent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("orders newest first", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
			names := []model.JobName{
				model.JobRunAnchor,
				model.JobPrepareBatch,
				model.JobExportBatch,
			}
			for i, name := range names {
				_, err := repo.Start(ctx, model.StartRunParams{
					JobName:   name,
					Source:    model.SourceCron,
					StartedAt: base.Add(time.Duration(i) * time.Minute),
				})
				require.NoError(t, err)
			}

			runs, err := repo.ListRecent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, model.JobExportBatch, runs[0].JobName)
			assert.Equal(t, model.JobPrepareBatch, runs[1].JobName)
		})
	})

	t.Run("clamps limit", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})
			ctx := context.Background()

			_, err := repo.Start(ctx, model.StartRunParams{
				JobName:   model.JobFallbackStatusSync,
				Source:    model.SourceCron,
				StartedAt: time.Now(),
			})
			require.NoError(t, err)

			// Zero and negative fall back to the default page size.
			runs, err := repo.ListRecent(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, runs, 1)

			runs, err = repo.ListRecent(ctx, -5)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
		})
	})

	t.Run("empty ledger", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewRunRepo(db, RunRepoConfig{})

			runs, err := repo.ListRecent(context.Background(), 20)
			require.NoError(t, err)
			assert.Empty(t, runs)
		})
	})
}

func stringPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
