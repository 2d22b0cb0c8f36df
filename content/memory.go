package content

import (
	"io"
	"math"

	"github.com/opd-ai/audioanalysis/audio"
)

// MemorySource serves a signal held in memory.
type MemorySource struct {
	signal *audio.Buffers
	rate   int
	pos    int
	closed bool
}

// NewMemorySource creates a source reading signal at rate. The source shares
// signal, which must not be modified while the source is in use.
func NewMemorySource(signal *audio.Buffers, rate int) *MemorySource {
	return &MemorySource{signal: signal, rate: rate}
}

// Info implements Source.
func (m *MemorySource) Info() Info {
	return Info{
		Channels:   m.signal.Channels(),
		SampleRate: m.rate,
		Frames:     int64(m.signal.Frames()),
		BitDepth:   32,
	}
}

// Read implements Source.
func (m *MemorySource) Read(maxFrames int) (*audio.Buffers, error) {
	if m.closed {
		return nil, ErrClosed
	}
	if maxFrames <= 0 || m.pos >= m.signal.Frames() {
		return nil, io.EOF
	}
	end := min(m.pos+maxFrames, m.signal.Frames())
	// pos < end <= Frames, so the slice is in range
	out, _ := m.signal.Slice(m.pos, end)
	m.pos = end
	return out, nil
}

// Seek implements Source.
func (m *MemorySource) Seek(frame int64) error {
	if m.closed {
		return ErrClosed
	}
	m.pos = int(min(max(frame, 0), int64(m.signal.Frames())))
	return nil
}

// Close implements Source.
func (m *MemorySource) Close() error {
	m.closed = true
	return nil
}

// Silence returns a silent signal.
func Silence(channels, frames int) *audio.Buffers {
	return audio.NewBuffers(channels, frames)
}

// Tone returns a sine of the given frequency and peak amplitude on every
// channel.
func Tone(channels, rate, frames int, freq, amplitude float64) *audio.Buffers {
	b := audio.NewBuffers(channels, frames)
	for ch := 0; ch < channels; ch++ {
		data := b.Data(ch)
		for i := range data {
			data[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		}
	}
	return b
}

// Impulse returns silence with a single sample of amplitude at frame on
// channel ch.
func Impulse(channels, frames, ch, frame int, amplitude float32) *audio.Buffers {
	b := audio.NewBuffers(channels, frames)
	if ch >= 0 && ch < channels && frame >= 0 && frame < frames {
		b.Data(ch)[frame] = amplitude
	}
	return b
}
