package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStateTransitions(t *testing.T) {
	tests := []struct {
		name      string
		steps     func(j *Job) error
		wantState State
		wantErr   error
	}{
		{
			name:      "start",
			steps:     func(j *Job) error { return j.Start() },
			wantState: StateRunning,
		},
		{
			name: "start twice",
			steps: func(j *Job) error {
				_ = j.Start()
				return j.Start()
			},
			wantState: StateRunning,
			wantErr:   ErrInvalidTransition,
		},
		{
			name: "finish",
			steps: func(j *Job) error {
				_ = j.Start()
				return j.SetFinished()
			},
			wantState: StateFinished,
		},
		{
			name:      "finish without start",
			steps:     func(j *Job) error { return j.SetFinished() },
			wantState: StateNotStarted,
			wantErr:   ErrInvalidTransition,
		},
		{
			name:      "fail before start",
			steps:     func(j *Job) error { return j.SetFailed("boom", nil) },
			wantState: StateFailed,
		},
		{
			name: "fail after finish",
			steps: func(j *Job) error {
				_ = j.Start()
				_ = j.SetFinished()
				return j.SetFailed("late", nil)
			},
			wantState: StateFinished,
			wantErr:   ErrInvalidTransition,
		},
		{
			name: "restart after cancel",
			steps: func(j *Job) error {
				_ = j.Cancel()
				return j.Start()
			},
			wantState: StateCancelled,
			wantErr:   ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := New("Test", "test")
			err := tt.steps(j)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, j.State())
		})
	}
}

func TestCancelTerminalJob(t *testing.T) {
	j := New("Test", "test")
	require.NoError(t, j.Start())
	require.NoError(t, j.SetFinished())
	assert.ErrorIs(t, j.Cancel(), ErrInvalidTransition)
	assert.Equal(t, StateFinished, j.State())

	cancelled := New("Test", "test")
	require.NoError(t, cancelled.Cancel())
	assert.ErrorIs(t, cancelled.Cancel(), ErrInvalidTransition)
	assert.Equal(t, StateCancelled, cancelled.State())
}

func TestProgress(t *testing.T) {
	j := New("Test", "test")
	_, known := j.Progress()
	assert.False(t, known)

	require.NoError(t, j.Start())
	j.SetProgress(0.25)
	p, known := j.Progress()
	assert.True(t, known)
	assert.Equal(t, 0.25, p)

	j.SetProgress(1.5)
	p, _ = j.Progress()
	assert.Equal(t, 1.0, p)

	j.SetProgress(-1)
	p, _ = j.Progress()
	assert.Equal(t, 0.0, p)

	j.SetProgressUnknown()
	_, known = j.Progress()
	assert.False(t, known)

	require.NoError(t, j.SetFinished())
	p, known = j.Progress()
	assert.True(t, known)
	assert.Equal(t, 1.0, p)

	j.SetProgress(0.5)
	p, _ = j.Progress()
	assert.Equal(t, 1.0, p, "terminal jobs ignore progress updates")
}

func TestFailureMessages(t *testing.T) {
	j := New("Test", "test")
	require.NoError(t, j.Start())
	require.NoError(t, j.SetFailed("Could not decode audio", assert.AnError))

	assert.Equal(t, StateFailed, j.State())
	assert.Equal(t, "Could not decode audio", j.ErrorSummary())
	assert.Equal(t, assert.AnError.Error(), j.ErrorDetails())
}

func TestCallbacks(t *testing.T) {
	j := New("Test", "test")

	var progress []float64
	var completed []State
	j.OnProgress(func(p float64) { progress = append(progress, p) })
	j.OnComplete(func(s State, _ string) { completed = append(completed, s) })

	require.NoError(t, j.Start())
	j.SetProgress(0.5)
	require.NoError(t, j.SetFinished())

	assert.Equal(t, []float64{0.5, 1}, progress)
	assert.Equal(t, []State{StateFinished}, completed)
}

func TestElapsedAndRemaining(t *testing.T) {
	tp := newMockTimeProvider()
	j := New("Test", "test")
	j.SetTimeProvider(tp)

	assert.Zero(t, j.Elapsed())
	_, ok := j.Remaining()
	assert.False(t, ok)

	require.NoError(t, j.Start())
	tp.advance(10 * time.Second)
	assert.Equal(t, 10*time.Second, j.Elapsed())

	_, ok = j.Remaining()
	assert.False(t, ok, "no estimate without progress")

	j.SetProgress(0.25)
	remaining, ok := j.Remaining()
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, remaining)

	require.NoError(t, j.SetFinished())
	tp.advance(time.Minute)
	assert.Equal(t, 10*time.Second, j.Elapsed(), "elapsed stops at finish")
	_, ok = j.Remaining()
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not started", StateNotStarted.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "finished", StateFinished.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateRunning.Terminal())
}
