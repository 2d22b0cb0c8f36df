package audio

import "errors"

// Sentinel errors for audio buffer operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrChannelMismatch indicates two buffers with different channel counts
	// were combined.
	ErrChannelMismatch = errors.New("channel count mismatch")

	// ErrFrameRange indicates a read or write range outside a buffer's frames.
	ErrFrameRange = errors.New("frame range out of bounds")

	// ErrInvalidSampleRate indicates a zero or negative sample rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrInvalidChannels indicates an unsupported channel count.
	ErrInvalidChannels = errors.New("invalid channel count")
)
