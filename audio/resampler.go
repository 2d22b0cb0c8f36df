// Sample rate conversion from a content item's native rate to the playlist
// rate. Content may arrive at 44.1kHz, 48kHz or 96kHz while the analysis runs
// at a single rate.

package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resampler converts a stream of blocks from one sample rate to another.
//
// Uses linear interpolation, carrying the fractional read position and the
// last input frame across calls so consecutive blocks join without clicks.
// A Resampler holds per-stream state and must not be shared between streams.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	last       []float32 // last frame of the previous block
	position   float64   // fractional read position relative to the current block
}

// ResamplerConfig holds configuration for creating a resampler.
type ResamplerConfig struct {
	InputRate  int // Input sample rate in Hz
	OutputRate int // Output sample rate in Hz
	Channels   int // Number of audio channels
}

// NewResampler creates a new resampler.
func NewResampler(config ResamplerConfig) (*Resampler, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "NewResampler",
		"input_rate":  config.InputRate,
		"output_rate": config.OutputRate,
		"channels":    config.Channels,
	}).Debug("Creating new audio resampler")

	if config.InputRate <= 0 || config.OutputRate <= 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewResampler",
			"input_rate":  config.InputRate,
			"output_rate": config.OutputRate,
			"error":       "invalid sample rates",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: input=%d, output=%d", ErrInvalidSampleRate, config.InputRate, config.OutputRate)
	}

	if config.Channels < 1 {
		logrus.WithFields(logrus.Fields{
			"function": "NewResampler",
			"channels": config.Channels,
			"error":    "unsupported channel count",
		}).Error("Channel count validation failed")
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, config.Channels)
	}

	return &Resampler{
		inputRate:  config.InputRate,
		outputRate: config.OutputRate,
		channels:   config.Channels,
		last:       make([]float32, config.Channels),
	}, nil
}

// Resample converts one block. The output length tracks the cumulative input
// length times the rate ratio, so a long stream of blocks does not drift.
func (r *Resampler) Resample(in *Buffers) (*Buffers, error) {
	if in.Channels() != r.channels {
		return nil, fmt.Errorf("%w: resampler has %d, block has %d", ErrChannelMismatch, r.channels, in.Channels())
	}

	if r.inputRate == r.outputRate {
		return in.Clone(), nil
	}

	frames := in.Frames()
	if frames == 0 {
		return NewBuffers(r.channels, 0), nil
	}

	step := float64(r.inputRate) / float64(r.outputRate)

	// Positions in [-1, frames-1) can be interpolated: index -1 is the last
	// frame of the previous block.
	count := 0
	for pos := r.position; pos < float64(frames-1); pos += step {
		count++
	}

	out := NewBuffers(r.channels, count)
	for ch := 0; ch < r.channels; ch++ {
		src := in.Data(ch)
		dst := out.Data(ch)
		pos := r.position
		for i := range dst {
			index := int(pos)
			if pos < 0 {
				index = -1
			}
			frac := float32(pos - float64(index))
			var s0 float32
			if index < 0 {
				s0 = r.last[ch]
			} else {
				s0 = src[index]
			}
			s1 := src[index+1]
			dst[i] = s0 + (s1-s0)*frac
			pos += step
		}
		r.last[ch] = src[frames-1]
	}

	r.position += float64(count)*step - float64(frames)

	logrus.WithFields(logrus.Fields{
		"function":      "Resampler.Resample",
		"input_frames":  frames,
		"output_frames": count,
		"position":      r.position,
	}).Debug("Resampled block")

	return out, nil
}

// Reset clears the carried state, for use after a seek.
func (r *Resampler) Reset() {
	clear(r.last)
	r.position = 0
}

// InputRate returns the configured input sample rate.
func (r *Resampler) InputRate() int {
	return r.inputRate
}

// OutputRate returns the configured output sample rate.
func (r *Resampler) OutputRate() int {
	return r.outputRate
}

// Channels returns the configured channel count.
func (r *Resampler) Channels() int {
	return r.channels
}
