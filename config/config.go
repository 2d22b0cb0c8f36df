// Package config holds the on-disk configuration of an analysis run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/analyser"
	"github.com/opd-ai/audioanalysis/interfaces"
	"github.com/opd-ai/audioanalysis/limits"
	"github.com/opd-ai/audioanalysis/timeline"
)

const (
	// FileName is the conventional name of the configuration file
	FileName = "audioanalysis.json"

	// DefaultFrameRate is the playlist frame rate used when none is configured
	DefaultFrameRate = 48000

	// DefaultChannels is the playlist channel count used when none is configured
	DefaultChannels = 2

	// DefaultAnalysisDir is where artifacts are written when no directory is configured
	DefaultAnalysisDir = "analysis"
)

var (
	// ErrNoAnalysisDir indicates an empty artifact directory.
	ErrNoAnalysisDir = errors.New("analysis directory cannot be empty")

	// ErrFrameRate indicates a frame rate the timeline cannot represent exactly.
	ErrFrameRate = errors.New("frame rate not representable on the timeline")
)

// Config holds the settings of an analysis run.
type Config struct {
	Points          int    `json:"points"`
	FromZero        bool   `json:"from_zero"`
	AnalyseLoudness bool   `json:"analyse_loudness"`
	BlockFrames     int    `json:"block_frames"`
	FrameRate       int    `json:"frame_rate"`
	Channels        int    `json:"channels"`
	AnalysisDir     string `json:"analysis_dir"`
	LogLevel        string `json:"log_level"`
	LogFile         string `json:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Points:          limits.DefaultPoints,
		AnalyseLoudness: true,
		BlockFrames:     limits.DefaultBlockFrames,
		FrameRate:       DefaultFrameRate,
		Channels:        DefaultChannels,
		AnalysisDir:     DefaultAnalysisDir,
		LogLevel:        "warn",
	}
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithFields(logrus.Fields{
				"function": "config.Load",
				"path":     path,
			}).Debug("No configuration file, using defaults")
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes c to path, creating its directory.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every setting against the package limits.
func (c *Config) Validate() error {
	if err := c.Analyser().Validate(); err != nil {
		return err
	}
	if err := c.Driver().Validate(); err != nil {
		return err
	}
	if !timeline.FrameAccurate(c.FrameRate) {
		return fmt.Errorf("%w: %d Hz", ErrFrameRate, c.FrameRate)
	}
	if c.AnalysisDir == "" {
		return ErrNoAnalysisDir
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Analyser returns the analyser settings.
func (c *Config) Analyser() analyser.Config {
	return analyser.Config{
		Points:          c.Points,
		FromZero:        c.FromZero,
		AnalyseLoudness: c.AnalyseLoudness,
	}
}

// Driver returns the playback settings.
func (c *Config) Driver() interfaces.DriverConfig {
	return interfaces.DriverConfig{
		Channels:    c.Channels,
		FrameRate:   c.FrameRate,
		BlockFrames: c.BlockFrames,
	}
}
