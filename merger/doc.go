// Package merger combines audio pushed from several content streams into a
// single time-ordered signal.
//
// # Overview
//
// Each content item on a playlist is decoded independently, so blocks reach
// the merger out of order and may overlap where items overlap on the
// timeline. The [Merger] keeps the pending audio as a minimal set of maximal,
// non-overlapping chunks keyed by start frame:
//
//   - Overlapping regions are mixed by sample-wise addition.
//   - Uncovered regions are stitched onto the chunk that ends exactly where
//     they start, onto the chunk that starts exactly where they end, or both
//     (coalescing three pieces into one), or become a new chunk.
//
// # Usage
//
//	m := merger.NewMerger(48000)
//	if err := m.Push(block, position); err != nil {
//	    // errors.Is(err, merger.ErrOrderingViolation) when position is before
//	    // the last pull time
//	}
//	for _, out := range m.Pull(upTo) {
//	    analyse(out.Audio, out.Time)
//	}
//
// Pull returns blocks in start order and splits a chunk that straddles the
// pull time, so everything returned ends at or before it. After a pull, no
// audio may be pushed before the pull time.
//
// # Thread Safety
//
// A Merger is used by exactly one goroutine at a time. Buffers passed to Push
// are only read during the call; the merger keeps its own copies.
package merger
