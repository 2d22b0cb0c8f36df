package analyser

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/interfaces"
	"github.com/opd-ai/audioanalysis/job"
	"github.com/opd-ai/audioanalysis/limits"
	"github.com/opd-ai/audioanalysis/loudness"
	"github.com/opd-ai/audioanalysis/timeline"
)

// Config controls an analysis run.
type Config struct {
	// Points is the approximate number of points per channel
	Points int

	// FromZero analyses from the start of the timeline rather than from
	// the first audio
	FromZero bool

	// AnalyseLoudness enables integrated loudness, loudness range and true
	// peak measurement
	AnalyseLoudness bool
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{Points: limits.DefaultPoints}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return limits.ValidatePoints(c.Points)
}

// JobParams holds the collaborators of a Job.
type JobParams struct {
	Playlist interfaces.Playlist
	Driver   interfaces.AudioDriver
	Writer   interfaces.ArtifactWriter
	Path     string
	Config   Config

	// Filter overrides the loudness meter used when Config.AnalyseLoudness
	// is set. A loudness.Meter is created when it is nil.
	Filter interfaces.LoudnessFilter
}

// Job analyses the audio of a playlist and writes the result to a path.
type Job struct {
	params JobParams
	job    *job.Job
}

// NewJob validates params and creates a job ready to run.
func NewJob(params JobParams) (*Job, error) {
	if params.Playlist == nil {
		return nil, ErrNoPlaylist
	}
	if params.Driver == nil {
		return nil, ErrNoDriver
	}
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	if err := limits.ValidateChannels(params.Playlist.AudioChannels()); err != nil {
		return nil, err
	}
	if err := limits.ValidateSampleRate(params.Playlist.AudioFrameRate()); err != nil {
		return nil, err
	}

	return &Job{
		params: params,
		job:    job.New("Analysing audio", "analyse_audio"),
	}, nil
}

// Job implements job.Runner.
func (j *Job) Job() *job.Job {
	return j.job
}

// Path returns the destination of the artifact.
func (j *Job) Path() string {
	return j.params.Path
}

// Run performs the analysis. On failure or cancellation the job state is
// set accordingly, the error is returned and nothing is written.
func (j *Job) Run(ctx context.Context) error {
	if err := j.job.Start(); err != nil {
		return err
	}

	err := j.run(ctx)
	switch {
	case err == nil:
		j.job.SetProgress(1)
		return j.job.SetFinished()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		_ = j.job.Cancel()
	default:
		_ = j.job.SetFailed(failureSummary(err), err)
	}
	return err
}

func (j *Job) run(ctx context.Context) error {
	playlist := j.params.Playlist
	cfg := j.params.Config
	channels := playlist.AudioChannels()
	rate := playlist.AudioFrameRate()

	var start timeline.Time
	if !cfg.FromZero {
		if s, ok := playlist.Start(); ok {
			start = s
		}
	}
	length := playlist.Length()
	totalFrames := max((length - start).FramesRound(rate), 0)
	spp := SamplesPerPoint(totalFrames, cfg.Points)

	logrus.WithFields(logrus.Fields{
		"function":          "Job.run",
		"path":              j.params.Path,
		"start":             start.String(),
		"length":            length.String(),
		"total_frames":      totalFrames,
		"samples_per_point": spp,
		"channels":          channels,
	}).Info("Starting audio analysis")

	var filter interfaces.LoudnessFilter
	if cfg.AnalyseLoudness {
		filter = j.params.Filter
		if filter == nil {
			meter, err := loudness.NewMeter(channels, rate)
			if err != nil {
				return err
			}
			filter = meter
		}
	}

	an := New(Params{
		Channels:        channels,
		SampleRate:      rate,
		Start:           start,
		Length:          length,
		SamplesPerPoint: spp,
		Filter:          filter,
	})
	an.OnProgress(j.job.SetProgress)

	if hasAudio(playlist) {
		if err := j.play(ctx, an, start); err != nil {
			return err
		}
	} else {
		logrus.WithFields(logrus.Fields{
			"function": "Job.run",
		}).Info("Playlist has no audio, writing empty analysis")
	}

	// A cancellation during the final pass must still prevent the write
	if err := ctx.Err(); err != nil {
		return err
	}

	result := an.Finish()

	if content := playlist.Content(); len(content) == 1 && content[0].HasAudio() {
		result.SetAnalysisGain(content[0].Gain())
	}

	if j.params.Writer != nil {
		if err := j.params.Writer.Write(result, j.params.Path); err != nil {
			return fmt.Errorf("%w: %w", errWrite, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Job.run",
		"path":     j.params.Path,
		"frames":   an.Frames(),
	}).Info("Audio analysis written")
	return nil
}

func (j *Job) play(ctx context.Context, an *Analyser, start timeline.Time) error {
	driver := j.params.Driver
	driver.SetAudioHandler(an)

	if err := driver.Seek(start); err != nil {
		return fmt.Errorf("%w: seek: %w", errPlayback, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Job.play",
				"frames":   an.Frames(),
			}).Info("Audio analysis cancelled")
			return err
		}

		done, err := driver.Pass()
		if err != nil {
			return fmt.Errorf("%w: %w", errPlayback, err)
		}
		if done {
			return nil
		}
	}
}

func hasAudio(p interfaces.Playlist) bool {
	for _, c := range p.Content() {
		if c.HasAudio() {
			return true
		}
	}
	return false
}

var (
	errPlayback = errors.New("audio playback failed")
	errWrite    = errors.New("could not write audio analysis")
)

func failureSummary(err error) string {
	switch {
	case errors.Is(err, ErrOrderingViolation):
		return "Audio arrived out of order"
	case errors.Is(err, errWrite):
		return "Could not write audio analysis"
	case errors.Is(err, errPlayback):
		return "Could not decode audio"
	default:
		return "Audio analysis failed"
	}
}
