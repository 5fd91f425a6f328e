// Package mocks provides mock implementations for testing the billing job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core ports. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockLedger := mocks.NewMockRunLedger(ctrl)
//	mockLedger.EXPECT().Start(gomock.Any(), gomock.Any()).Return(run, nil)
package mocks

// Generate mocks for the orchestration ports: the distributed lock service
// and the run ledger that every job execution records into.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=ports_mock.go github.com/cobrix/billing-jobs/internal/core LockService,RunLedger

// Generate mocks for the billing engines the jobs delegate to.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=engines_mock.go github.com/cobrix/billing-jobs/internal/core AnchorEngine,BatchEngine,FallbackEngine,RolloutResolver,AgencyDirectory

// Generate a mock for the overview aggregate read model.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=overview_mock.go github.com/cobrix/billing-jobs/internal/core OverviewStore
