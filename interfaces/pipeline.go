package interfaces

import (
	"errors"
	"fmt"

	"github.com/opd-ai/audioanalysis/analysis"
	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/limits"
	"github.com/opd-ai/audioanalysis/timeline"
)

// AudioHandler receives audio emitted by a driver, in time order.
type AudioHandler interface {
	// HandleAudio is called with a block of audio starting at t. The buffer
	// is only valid for the duration of the call.
	HandleAudio(buf *audio.Buffers, t timeline.Time) error
}

// AudioHandlerFunc adapts a function to AudioHandler.
type AudioHandlerFunc func(buf *audio.Buffers, t timeline.Time) error

// HandleAudio implements AudioHandler.
func (f AudioHandlerFunc) HandleAudio(buf *audio.Buffers, t timeline.Time) error {
	return f(buf, t)
}

// AudioDriver plays a playlist and delivers its mixed audio to a handler.
type AudioDriver interface {
	// SetAudioHandler registers the receiver of emitted audio
	SetAudioHandler(h AudioHandler)

	// Seek positions playback at t
	Seek(t timeline.Time) error

	// Pass advances playback by one step. It returns true once the end of
	// the playlist has been reached and all audio has been delivered.
	Pass() (done bool, err error)
}

// Content is a single item on a playlist.
type Content interface {
	// HasAudio reports whether the item contributes audio
	HasAudio() bool

	// Gain returns the item's gain in dB
	Gain() float64

	// Digest returns a stable identifier of the item's audio data
	Digest() (string, error)

	// Position returns where the item starts on the timeline
	Position() timeline.Time

	// TrimStart returns the amount cut from the start of the item
	TrimStart() timeline.Time
}

// Playlist describes the timeline being analysed.
type Playlist interface {
	// Content returns the items on the playlist
	Content() []Content

	// Start returns the position of the earliest audio, if there is any
	Start() (timeline.Time, bool)

	// Length returns the end of the playlist
	Length() timeline.Time

	// AudioChannels returns the channel count of the mixed output
	AudioChannels() int

	// AudioFrameRate returns the sample rate of the mixed output
	AudioFrameRate() int
}

// LoudnessFilter measures loudness of the audio passed to it.
type LoudnessFilter interface {
	// Process feeds a block of audio to the filter
	Process(buf *audio.Buffers) error

	// TruePeak returns the linear true peak of each channel
	TruePeak() []float32

	// IntegratedLoudness returns the integrated loudness in LUFS
	IntegratedLoudness() float32

	// LoudnessRange returns the loudness range in LU
	LoudnessRange() float32
}

// ArtifactWriter persists a finished analysis.
type ArtifactWriter interface {
	Write(a *analysis.AudioAnalysis, path string) error
}

// ErrInvalidBlockFrames indicates a non-positive driver block size.
var ErrInvalidBlockFrames = errors.New("block frames must be positive")

// DriverConfig holds configuration shared by AudioDriver implementations.
type DriverConfig struct {
	// Channels is the channel count of the mixed output
	Channels int

	// FrameRate is the sample rate of the mixed output
	FrameRate int

	// BlockFrames is the number of frames each stream decodes per pass
	BlockFrames int
}

// Validate checks the configuration against the package limits.
func (c DriverConfig) Validate() error {
	if err := limits.ValidateChannels(c.Channels); err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	if err := limits.ValidateSampleRate(c.FrameRate); err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	if c.BlockFrames <= 0 {
		return ErrInvalidBlockFrames
	}
	if err := limits.ValidateBufferFrames(c.BlockFrames); err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	return nil
}
