package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrJobNotFound indicates that no job is registered under the given ID.
var ErrJobNotFound = errors.New("job not found")

// Runner is a unit of work that reports through a Job.
type Runner interface {
	// Job returns the observable state of the work
	Job() *Job

	// Run performs the work. It should return promptly once ctx is done.
	Run(ctx context.Context) error
}

// Manager runs jobs on their own goroutines and tracks them by ID.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextID  uint64
}

type entry struct {
	id     string
	seq    uint64
	runner Runner
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewManager creates an empty job manager.
func NewManager() *Manager {
	logrus.WithFields(logrus.Fields{
		"function": "NewManager",
	}).Info("Creating new job manager")

	return &Manager{entries: make(map[string]*entry)}
}

// Add starts r on a new goroutine and returns its ID. The run's context is
// derived from ctx and is cancelled by Cancel.
//
// If Run returns while the job is still not terminal, the manager settles the
// state from the returned error: nil finishes the job, a context error
// cancels it and anything else fails it.
func (m *Manager) Add(ctx context.Context, r Runner) string {
	runCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.nextID++
	e := &entry{
		id:     fmt.Sprintf("%s-%d", r.Job().JSONName(), m.nextID),
		seq:    m.nextID,
		runner: r,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.entries[e.id] = e
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Manager.Add",
		"job_id":   e.id,
	}).Info("Starting job")

	go m.run(runCtx, e)
	return e.id
}

func (m *Manager) run(ctx context.Context, e *entry) {
	defer close(e.done)
	defer e.cancel()

	err := e.runner.Run(ctx)
	e.err = err

	j := e.runner.Job()
	if j.State().Terminal() {
		return
	}

	switch {
	case err == nil:
		if j.State() == StateNotStarted {
			_ = j.Start()
		}
		_ = j.SetFinished()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		_ = j.Cancel()
	default:
		_ = j.SetFailed(err.Error(), err)
	}
}

// Get returns the job registered under id.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.runner.Job(), true
}

// Cancel requests cancellation of the job registered under id.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.Cancel",
		"job_id":   id,
	}).Info("Cancelling job")

	e.cancel()
	return nil
}

// Wait blocks until the job registered under id has returned from Run, or ctx
// is done. It returns the error Run returned.
func (m *Manager) Wait(ctx context.Context, id string) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IDs returns the registered job IDs in creation order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, k int) bool {
		return entries[i].seq < entries[k].seq
	})

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// Jobs returns the registered jobs in creation order.
func (m *Manager) Jobs() []*Job {
	ids := m.IDs()
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := m.Get(id); ok {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// CancelAll requests cancellation of every job.
func (m *Manager) CancelAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		e.cancel()
	}
}
