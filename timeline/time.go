package timeline

import (
	"fmt"
	"math"
)

// HZ is the number of Time ticks per second.
const HZ int64 = 96000

// Time is a position on the timeline in ticks of 1/HZ second.
type Time int64

// FromFrames converts a frame count at the given rate to a Time. The result is
// truncated towards zero when the frame boundary does not fall on a tick.
func FromFrames(frames int64, rate int) Time {
	return Time(frames * HZ / int64(rate))
}

// FrameAccurate reports whether FramesRound(FromFrames(n, rate)) == n for
// every n. This holds when a frame lasts at least two ticks or a whole number
// of ticks.
func FrameAccurate(rate int) bool {
	return rate > 0 && (2*int64(rate) <= HZ || HZ%int64(rate) == 0)
}

// FromSeconds converts a duration in seconds to the nearest Time.
func FromSeconds(s float64) Time {
	return Time(math.Round(s * float64(HZ)))
}

// Seconds returns t in seconds.
func (t Time) Seconds() float64 {
	return float64(t) / float64(HZ)
}

// FramesFloor returns the number of whole frames at rate that fit before t.
func (t Time) FramesFloor(rate int) int64 {
	return floorDiv(int64(t)*int64(rate), HZ)
}

// FramesRound returns the frame index at rate nearest to t.
func (t Time) FramesRound(rate int) int64 {
	return floorDiv(2*int64(t)*int64(rate)+HZ, 2*HZ)
}

// FramesCeil returns the smallest frame count at rate whose duration is at
// least t.
func (t Time) FramesCeil(rate int) int64 {
	return -floorDiv(-int64(t)*int64(rate), HZ)
}

// Max returns the later of t and o.
func (t Time) Max(o Time) Time {
	if o > t {
		return o
	}
	return t
}

// Min returns the earlier of t and o.
func (t Time) Min(o Time) Time {
	if o < t {
		return o
	}
	return t
}

// String formats t as seconds with millisecond precision.
func (t Time) String() string {
	return fmt.Sprintf("%.3fs", t.Seconds())
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
