// Package timeline provides the fixed-point time representation used by the
// audio analysis pipeline.
//
// # Time
//
// A [Time] counts ticks of 1/96000 second since the timeline origin. 96000 is
// an exact multiple of every common audio rate's frame duration at 48kHz and
// 96kHz, but not of 44.1kHz, so conversions to frame counts take an explicit
// rounding mode:
//
//	t := timeline.FromSeconds(1.5)
//	t.FramesFloor(44100) // 66150
//	t.FramesRound(44100)
//	t.FramesCeil(44100)
//
// # Periods
//
// A [Period] is a half-open interval [From, To). Periods are generic over any
// int64-based type so the same overlap and subtraction logic serves both
// timeline positions and sample-frame indices:
//
//	a := timeline.NewPeriod[int64](0, 100)
//	gaps := timeline.Subtract(a, []timeline.Period[int64]{{From: 10, To: 20}})
//	// gaps == [{0 10} {20 100}]
package timeline
