package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxChannels is the largest channel count a buffer or playlist may carry.
	// 16 covers every cinema layout up to immersive beds.
	MaxChannels = 16

	// MinSampleRate is the lowest supported playlist or content sample rate.
	MinSampleRate = 8000

	// MaxSampleRate is the highest supported playlist or content sample rate.
	MaxSampleRate = 192000

	// DefaultPoints is the number of decimated points produced per channel.
	DefaultPoints = 1024

	// MaxPoints bounds the requested point count so the artifact stays small.
	MaxPoints = 1 << 20

	// MaxBufferFrames is the absolute maximum frame count for a single block
	// handed through the pipeline (10 minutes at 192kHz).
	MaxBufferFrames = 192000 * 600

	// DefaultBlockFrames is the number of frames a content source decodes per pass.
	DefaultBlockFrames = 4800
)

var (
	// ErrChannelCount indicates a channel count outside [0, MaxChannels].
	ErrChannelCount = errors.New("channel count out of range")

	// ErrSampleRate indicates a sample rate outside [MinSampleRate, MaxSampleRate].
	ErrSampleRate = errors.New("sample rate out of range")

	// ErrPoints indicates a point count outside [1, MaxPoints].
	ErrPoints = errors.New("point count out of range")

	// ErrBufferFrames indicates a frame count outside [0, MaxBufferFrames].
	ErrBufferFrames = errors.New("buffer frame count out of range")
)

// ValidateChannels validates a channel count. Zero channels is a valid
// degenerate layout (an analysis with no points).
func ValidateChannels(channels int) error {
	if channels < 0 || channels > MaxChannels {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrChannelCount, channels, MaxChannels)
	}
	return nil
}

// ValidateSampleRate validates a sample rate in Hz.
func ValidateSampleRate(rate int) error {
	if rate < MinSampleRate || rate > MaxSampleRate {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrSampleRate, rate, MinSampleRate, MaxSampleRate)
	}
	return nil
}

// ValidatePoints validates a requested number of display points.
func ValidatePoints(points int) error {
	if points < 1 || points > MaxPoints {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPoints, points, MaxPoints)
	}
	return nil
}

// ValidateBufferFrames validates the frame count of a single buffer.
func ValidateBufferFrames(frames int) error {
	if frames < 0 || frames > MaxBufferFrames {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrBufferFrames, frames, MaxBufferFrames)
	}
	return nil
}
