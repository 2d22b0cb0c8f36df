package job

import (
	"context"
	"time"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// funcRunner adapts a function to Runner.
type funcRunner struct {
	job *Job
	run func(ctx context.Context, j *Job) error
}

func (r *funcRunner) Job() *Job { return r.job }

func (r *funcRunner) Run(ctx context.Context) error { return r.run(ctx, r.job) }

func newFuncRunner(run func(ctx context.Context, j *Job) error) *funcRunner {
	return &funcRunner{job: New("Test", "test"), run: run}
}
