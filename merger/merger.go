package merger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/timeline"
	"github.com/sirupsen/logrus"
)

// ErrOrderingViolation indicates audio was pushed before the last pull time.
// This is a caller bug rather than a recoverable condition.
var ErrOrderingViolation = errors.New("push before last pull time")

// Block is a contiguous piece of merged audio and its timeline position.
type Block struct {
	Audio *audio.Buffers
	Time  timeline.Time
	Frame int64 // Start frame at the merger's rate
}

// Period returns the frame period covered by the block.
func (b Block) Period() timeline.Period[int64] {
	return timeline.NewPeriod(b.Frame, b.Frame+int64(b.Audio.Frames()))
}

type chunk struct {
	audio *audio.Buffers
	start int64
}

func (c *chunk) end() int64 {
	return c.start + int64(c.audio.Frames())
}

func (c *chunk) period() timeline.Period[int64] {
	return timeline.NewPeriod(c.start, c.end())
}

// Merger buffers pending audio chunks and emits them in time order.
type Merger struct {
	rate     int
	lastPull timeline.Time
	chunks   []*chunk // sorted by start, pairwise non-overlapping
}

// NewMerger creates a merger for audio at the given frame rate.
func NewMerger(rate int) *Merger {
	logrus.WithFields(logrus.Fields{
		"function": "NewMerger",
		"rate":     rate,
	}).Debug("Creating audio merger")

	return &Merger{rate: rate}
}

// Rate returns the merger's frame rate.
func (m *Merger) Rate() int {
	return m.rate
}

// LastPull returns the time of the most recent pull.
func (m *Merger) LastPull() timeline.Time {
	return m.lastPull
}

// Len returns the number of pending chunks.
func (m *Merger) Len() int {
	return len(m.chunks)
}

// Pending returns the frame periods of the pending chunks in start order.
func (m *Merger) Pending() []timeline.Period[int64] {
	out := make([]timeline.Period[int64], len(m.chunks))
	for i, c := range m.chunks {
		out[i] = c.period()
	}
	return out
}

// Push adds buf starting at time t, mixing it into any pending audio it
// overlaps. The caller keeps ownership of buf.
func (m *Merger) Push(buf *audio.Buffers, t timeline.Time) error {
	if t < m.lastPull {
		logrus.WithFields(logrus.Fields{
			"function":  "Merger.Push",
			"time":      t.String(),
			"last_pull": m.lastPull.String(),
		}).Error("Audio pushed before last pull time")
		return fmt.Errorf("%w: push at %v, last pull %v", ErrOrderingViolation, t, m.lastPull)
	}

	frames := buf.Frames()
	if frames == 0 {
		return nil
	}

	if len(m.chunks) > 0 && m.chunks[0].audio.Channels() != buf.Channels() {
		return fmt.Errorf("%w: pending audio has %d channels, pushed %d",
			audio.ErrChannelMismatch, m.chunks[0].audio.Channels(), buf.Channels())
	}

	start := t.FramesRound(m.rate)
	period := timeline.NewPeriod(start, start+int64(frames))

	// Mix the overlapping parts into the pending chunks.
	first := sort.Search(len(m.chunks), func(i int) bool {
		return m.chunks[i].end() > period.From
	})
	var covered []timeline.Period[int64]
	for _, c := range m.chunks[first:] {
		if c.start >= period.To {
			break
		}
		overlap, ok := c.period().Overlap(period)
		if !ok {
			continue
		}
		n := int(overlap.Duration())
		if err := c.audio.AccumulateFrames(buf, n, int(overlap.From-start), int(overlap.From-c.start)); err != nil {
			return fmt.Errorf("mix overlap %v: %w", overlap, err)
		}
		covered = append(covered, c.period())
	}

	// Stitch in the parts nothing covered yet.
	gaps := timeline.Subtract(period, covered)
	for _, gap := range gaps {
		part, err := buf.Slice(int(gap.From-start), int(gap.To-start))
		if err != nil {
			return fmt.Errorf("extract gap %v: %w", gap, err)
		}
		if err := m.insert(part, gap); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Merger.Push",
		"period":   period.String(),
		"overlaps": len(covered),
		"gaps":     len(gaps),
		"pending":  len(m.chunks),
	}).Debug("Pushed audio")

	return nil
}

// insert places part, which covers gap exactly, joining it to any chunk that
// touches either end.
func (m *Merger) insert(part *audio.Buffers, gap timeline.Period[int64]) error {
	idx := sort.Search(len(m.chunks), func(i int) bool {
		return m.chunks[i].start >= gap.To
	})

	var before, after *chunk
	if idx < len(m.chunks) && m.chunks[idx].start == gap.To {
		after = m.chunks[idx]
	}
	if idx > 0 && m.chunks[idx-1].end() == gap.From {
		before = m.chunks[idx-1]
	}

	switch {
	case before == nil && after == nil:
		m.chunks = append(m.chunks, nil)
		copy(m.chunks[idx+1:], m.chunks[idx:])
		m.chunks[idx] = &chunk{audio: part, start: gap.From}
	case before != nil && after == nil:
		return before.audio.Append(part)
	case before == nil && after != nil:
		if err := part.Append(after.audio); err != nil {
			return err
		}
		after.audio = part
		after.start = gap.From
	default:
		if err := before.audio.Append(part); err != nil {
			return err
		}
		if err := before.audio.Append(after.audio); err != nil {
			return err
		}
		m.chunks = append(m.chunks[:idx], m.chunks[idx+1:]...)
	}
	return nil
}

// Pull returns, in start order, all pending audio before time t, splitting a
// chunk that straddles t. No audio may be pushed before t afterwards.
func (m *Merger) Pull(t timeline.Time) []Block {
	end := t.FramesFloor(m.rate)

	var out []Block
	keep := make([]*chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		switch {
		case c.end() <= end:
			out = append(out, Block{Audio: c.audio, Time: timeline.FromFrames(c.start, m.rate), Frame: c.start})
		case c.start < end:
			n := int(end - c.start)
			// 0 < n < frames, so neither call can fail.
			head, _ := c.audio.Slice(0, n)
			_ = c.audio.TrimStart(n)
			out = append(out, Block{Audio: head, Time: timeline.FromFrames(c.start, m.rate), Frame: c.start})
			c.start = end
			keep = append(keep, c)
		default:
			keep = append(keep, c)
		}
	}
	m.chunks = keep

	if t > m.lastPull {
		m.lastPull = t
	}

	logrus.WithFields(logrus.Fields{
		"function": "Merger.Pull",
		"time":     t.String(),
		"blocks":   len(out),
		"pending":  len(m.chunks),
	}).Debug("Pulled audio")

	return out
}

// Reset drops all pending audio and moves the pull floor to t, for use when
// the driver seeks.
func (m *Merger) Reset(t timeline.Time) {
	m.chunks = nil
	m.lastPull = t
}
