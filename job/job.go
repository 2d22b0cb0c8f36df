package job

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInvalidTransition indicates a state change the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid job state transition")

// State represents the current state of a job.
type State uint8

const (
	// StateNotStarted indicates the job has been created but not run.
	StateNotStarted State = iota
	// StateRunning indicates the job is in progress.
	StateRunning
	// StateFinished indicates the job completed successfully.
	StateFinished
	// StateFailed indicates the job stopped with an error.
	StateFailed
	// StateCancelled indicates the job was cancelled before completing.
	StateCancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed || s == StateCancelled
}

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

var defaultTimeProvider TimeProvider = DefaultTimeProvider{}

// Job is the observable state of one unit of work.
type Job struct {
	name     string
	jsonName string

	mu            sync.Mutex
	state         State
	progress      float64
	progressKnown bool
	errorSummary  string
	errorDetails  string
	startTime     time.Time
	finishTime    time.Time
	timeProvider  TimeProvider

	progressCallback func(float64)
	completeCallback func(State, string)
}

// New creates a job in the NotStarted state. name is shown to users and
// jsonName is a stable machine-readable identifier.
func New(name, jsonName string) *Job {
	logrus.WithFields(logrus.Fields{
		"function":  "job.New",
		"name":      name,
		"json_name": jsonName,
	}).Debug("Creating job")

	return &Job{
		name:         name,
		jsonName:     jsonName,
		state:        StateNotStarted,
		timeProvider: defaultTimeProvider,
	}
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (j *Job) SetTimeProvider(tp TimeProvider) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.timeProvider = tp
}

// Name returns the human-readable name.
func (j *Job) Name() string { return j.name }

// JSONName returns the machine-readable name.
func (j *Job) JSONName() string { return j.jsonName }

// Start moves the job from NotStarted to Running.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != StateNotStarted {
		logrus.WithFields(logrus.Fields{
			"function":      "Job.Start",
			"job":           j.jsonName,
			"current_state": j.state.String(),
		}).Error("Job cannot be started in current state")
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.state, StateRunning)
	}

	j.state = StateRunning
	j.startTime = j.timeProvider.Now()

	logrus.WithFields(logrus.Fields{
		"function": "Job.Start",
		"job":      j.jsonName,
	}).Info("Job started")
	return nil
}

// SetProgress records progress as a fraction in [0, 1]. Values outside the
// range are clamped. It has no effect once the job is terminal.
func (j *Job) SetProgress(p float64) {
	j.mu.Lock()
	if j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	p = min(max(p, 0), 1)
	j.progress = p
	j.progressKnown = true
	cb := j.progressCallback
	j.mu.Unlock()

	if cb != nil {
		cb(p)
	}
}

// SetProgressUnknown marks progress as not currently measurable.
func (j *Job) SetProgressUnknown() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.Terminal() {
		j.progressKnown = false
	}
}

// Progress returns the current fraction and whether it is known.
func (j *Job) Progress() (float64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress, j.progressKnown
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// SetFinished moves a running job to Finished with progress 1.
func (j *Job) SetFinished() error {
	j.mu.Lock()
	if j.state != StateRunning {
		state := j.state
		j.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, state, StateFinished)
	}
	j.progress = 1
	j.progressKnown = true
	j.state = StateFinished
	j.finishTime = j.timeProvider.Now()
	progressCb, completeCb := j.progressCallback, j.completeCallback
	j.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Job.SetFinished",
		"job":      j.jsonName,
		"elapsed":  j.Elapsed().String(),
	}).Info("Job finished")

	if progressCb != nil {
		progressCb(1)
	}
	if completeCb != nil {
		completeCb(StateFinished, "")
	}
	return nil
}

// SetFailed moves a job that has not yet reached a terminal state to Failed,
// recording summary as the user-facing message and err as detail.
func (j *Job) SetFailed(summary string, err error) error {
	j.mu.Lock()
	if j.state.Terminal() {
		state := j.state
		j.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, state, StateFailed)
	}
	j.state = StateFailed
	j.errorSummary = summary
	if err != nil {
		j.errorDetails = err.Error()
	}
	j.finishTime = j.timeProvider.Now()
	details := j.errorDetails
	cb := j.completeCallback
	j.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Job.SetFailed",
		"job":      j.jsonName,
		"summary":  summary,
		"details":  details,
	}).Error("Job failed")

	if cb != nil {
		cb(StateFailed, summary)
	}
	return nil
}

// Cancel moves a job that has not yet reached a terminal state to Cancelled.
func (j *Job) Cancel() error {
	j.mu.Lock()
	if state := j.state; state.Terminal() {
		j.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, state, StateCancelled)
	}
	j.state = StateCancelled
	j.finishTime = j.timeProvider.Now()
	cb := j.completeCallback
	j.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Job.Cancel",
		"job":      j.jsonName,
	}).Info("Job cancelled")

	if cb != nil {
		cb(StateCancelled, "")
	}
	return nil
}

// ErrorSummary returns the user-facing failure message, if any.
func (j *Job) ErrorSummary() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorSummary
}

// ErrorDetails returns the underlying failure detail, if any.
func (j *Job) ErrorDetails() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorDetails
}

// Elapsed returns how long the job has been running, or ran for once finished.
func (j *Job) Elapsed() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case j.startTime.IsZero():
		return 0
	case !j.finishTime.IsZero():
		return j.finishTime.Sub(j.startTime)
	default:
		return j.timeProvider.Since(j.startTime)
	}
}

// Remaining estimates the time left from elapsed time and progress. The
// estimate is unavailable until the job is running with non-zero known progress.
func (j *Job) Remaining() (time.Duration, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != StateRunning || !j.progressKnown || j.progress <= 0 {
		return 0, false
	}
	elapsed := j.timeProvider.Since(j.startTime)
	remaining := float64(elapsed) * (1 - j.progress) / j.progress
	return time.Duration(remaining), true
}

// OnProgress sets a callback invoked on every progress update.
func (j *Job) OnProgress(callback func(float64)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progressCallback = callback
}

// OnComplete sets a callback invoked once the job reaches a terminal state.
// The string is the error summary for failed jobs and empty otherwise.
func (j *Job) OnComplete(callback func(State, string)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completeCallback = callback
}
