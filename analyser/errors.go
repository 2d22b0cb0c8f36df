package analyser

import "errors"

var (
	// ErrOrderingViolation indicates audio delivered before the analysis start.
	ErrOrderingViolation = errors.New("audio delivered before analysis start")

	// ErrNoDriver indicates a job was created without an audio driver.
	ErrNoDriver = errors.New("no audio driver")

	// ErrNoPlaylist indicates a job was created without a playlist.
	ErrNoPlaylist = errors.New("no playlist")
)
