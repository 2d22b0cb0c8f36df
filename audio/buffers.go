// Buffers is a mutable multichannel block of float32 samples. Each channel is
// stored contiguously so per-channel loops in the analyser and the loudness
// meter walk memory linearly.

package audio

import (
	"fmt"
)

// Buffers holds channels × frames float32 samples, nominally in [-1, 1].
//
// A Buffers value is not safe for concurrent mutation. The merger and the
// analyser each own the buffers they mutate.
type Buffers struct {
	data   [][]float32
	frames int
}

// NewBuffers creates a silent block with the given channel and frame counts.
func NewBuffers(channels, frames int) *Buffers {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &Buffers{data: data, frames: frames}
}

// FromChannels wraps per-channel sample slices. All slices must have the same
// length; the slices are copied.
func FromChannels(channels [][]float32) (*Buffers, error) {
	frames := 0
	if len(channels) > 0 {
		frames = len(channels[0])
	}
	b := NewBuffers(len(channels), frames)
	for ch, samples := range channels {
		if len(samples) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, expected %d", ErrFrameRange, ch, len(samples), frames)
		}
		copy(b.data[ch], samples)
	}
	return b, nil
}

// FromInterleaved de-interleaves float32 samples into a new block.
func FromInterleaved(samples []float32, channels int) (*Buffers, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not aligned to %d channels", ErrFrameRange, len(samples), channels)
	}
	frames := len(samples) / channels
	b := NewBuffers(channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			b.data[ch][i] = samples[i*channels+ch]
		}
	}
	return b, nil
}

// Channels returns the number of channels.
func (b *Buffers) Channels() int {
	return len(b.data)
}

// Frames returns the number of frames.
func (b *Buffers) Frames() int {
	return b.frames
}

// Data returns the samples of channel ch. The slice aliases the buffer.
func (b *Buffers) Data(ch int) []float32 {
	return b.data[ch]
}

// Clone returns a deep copy of b.
func (b *Buffers) Clone() *Buffers {
	c := NewBuffers(b.Channels(), b.frames)
	for ch := range b.data {
		copy(c.data[ch], b.data[ch])
	}
	return c
}

// MakeSilent zeroes every sample.
func (b *Buffers) MakeSilent() {
	for ch := range b.data {
		clear(b.data[ch])
	}
}

// SetFrames changes the frame count, zero-filling any new frames.
func (b *Buffers) SetFrames(frames int) {
	if frames < 0 {
		frames = 0
	}
	for ch := range b.data {
		if frames <= cap(b.data[ch]) {
			old := len(b.data[ch])
			b.data[ch] = b.data[ch][:frames]
			if frames > old {
				clear(b.data[ch][old:])
			}
			continue
		}
		grown := make([]float32, frames)
		copy(grown, b.data[ch])
		b.data[ch] = grown
	}
	b.frames = frames
}

// CopyFrom copies frames frames of src, starting at readOffset, into b at
// writeOffset.
func (b *Buffers) CopyFrom(src *Buffers, frames, readOffset, writeOffset int) error {
	if err := b.checkRange(src, frames, readOffset, writeOffset); err != nil {
		return err
	}
	for ch := range b.data {
		copy(b.data[ch][writeOffset:writeOffset+frames], src.data[ch][readOffset:readOffset+frames])
	}
	return nil
}

// AccumulateFrames adds frames frames of src, starting at readOffset, onto b at
// writeOffset.
func (b *Buffers) AccumulateFrames(src *Buffers, frames, readOffset, writeOffset int) error {
	if err := b.checkRange(src, frames, readOffset, writeOffset); err != nil {
		return err
	}
	for ch := range b.data {
		dst := b.data[ch][writeOffset : writeOffset+frames]
		in := src.data[ch][readOffset : readOffset+frames]
		for i := range dst {
			dst[i] += in[i]
		}
	}
	return nil
}

// Append adds all frames of src to the end of b.
func (b *Buffers) Append(src *Buffers) error {
	if src.Channels() != b.Channels() {
		return fmt.Errorf("%w: %d != %d", ErrChannelMismatch, src.Channels(), b.Channels())
	}
	for ch := range b.data {
		b.data[ch] = append(b.data[ch], src.data[ch]...)
	}
	b.frames += src.frames
	return nil
}

// TrimStart removes the first frames frames.
func (b *Buffers) TrimStart(frames int) error {
	if frames < 0 || frames > b.frames {
		return fmt.Errorf("%w: trim %d of %d frames", ErrFrameRange, frames, b.frames)
	}
	for ch := range b.data {
		remaining := make([]float32, b.frames-frames)
		copy(remaining, b.data[ch][frames:])
		b.data[ch] = remaining
	}
	b.frames -= frames
	return nil
}

// Slice returns a copy of frames [from, to).
func (b *Buffers) Slice(from, to int) (*Buffers, error) {
	if from < 0 || to < from || to > b.frames {
		return nil, fmt.Errorf("%w: slice [%d, %d) of %d frames", ErrFrameRange, from, to, b.frames)
	}
	out := NewBuffers(b.Channels(), to-from)
	for ch := range b.data {
		copy(out.data[ch], b.data[ch][from:to])
	}
	return out, nil
}

// Remap returns a block with the given channel count. Channel i of b maps to
// channel i of the result; missing channels are silent and extra channels of b
// are dropped.
func (b *Buffers) Remap(channels int) *Buffers {
	if channels == b.Channels() {
		return b.Clone()
	}
	out := NewBuffers(channels, b.frames)
	for ch := 0; ch < channels && ch < b.Channels(); ch++ {
		copy(out.data[ch], b.data[ch])
	}
	return out
}

func (b *Buffers) checkRange(src *Buffers, frames, readOffset, writeOffset int) error {
	if src.Channels() != b.Channels() {
		return fmt.Errorf("%w: %d != %d", ErrChannelMismatch, src.Channels(), b.Channels())
	}
	if frames < 0 || readOffset < 0 || writeOffset < 0 ||
		readOffset+frames > src.frames || writeOffset+frames > b.frames {
		return fmt.Errorf("%w: %d frames read at %d of %d, written at %d of %d",
			ErrFrameRange, frames, readOffset, src.frames, writeOffset, b.frames)
	}
	return nil
}
