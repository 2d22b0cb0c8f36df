// Package analyser computes per-channel level statistics of a playlist's
// mixed audio and persists them as an analysis artifact.
//
// [Analyser] consumes time-ordered audio blocks. For every channel it sums
// squares and tracks the maximum absolute value over buckets of
// samples-per-point frames, emitting one [analysis.Point] per full bucket, and
// records the loudest single sample with its frame index. Sample magnitudes
// below 1e-7 (-140 dBFS) are raised to that floor so that no point is ever
// zero and its dB value stays finite.
//
// [Job] sequences a complete run: it derives the bucket size from the
// playlist length and the requested number of points, drives playback through
// an [interfaces.AudioDriver], optionally measures loudness, and writes the
// artifact. Progress and terminal state are published through a [job.Job]:
//
//	j, err := analyser.NewJob(analyser.JobParams{
//	    Playlist: playlist,
//	    Driver:   player,
//	    Writer:   analysis.FileWriter{},
//	    Path:     path,
//	    Config:   analyser.DefaultConfig(),
//	})
//	if err != nil {
//	    return err
//	}
//	id := manager.Add(ctx, j)
//	err = manager.Wait(ctx, id)
//
// A failed or cancelled run writes nothing.
package analyser
