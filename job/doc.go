// Package job tracks long-running work such as analysis runs.
//
// A [Job] carries a state machine, a progress fraction that may be unknown,
// an error message for failed runs and timing information. All accessors are
// safe for concurrent use, so a monitoring goroutine can poll progress while
// the work runs on another:
//
//	j := job.New("Analysing audio", "analyse_audio")
//	j.OnProgress(func(p float64) {
//	    fmt.Printf("Progress: %.1f%%\n", p*100)
//	})
//	_ = j.Start()
//	j.SetProgress(0.5)
//	_ = j.SetFinished()
//
// A [Manager] runs [Runner] implementations on their own goroutines, each with
// a cancellable context, and exposes cancellation and waiting by job ID.
//
// # State Machine
//
//	NotStarted -> Running -> Finished
//	                      -> Failed
//	                      -> Cancelled
//	NotStarted -> Failed | Cancelled
//
// Terminal states never change again. Invalid transitions return
// [ErrInvalidTransition].
//
// # Deterministic Testing
//
// Timing uses a [TimeProvider] that tests can replace via
// [Job.SetTimeProvider] to make elapsed and remaining estimates exact.
package job
