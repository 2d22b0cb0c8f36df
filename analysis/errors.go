package analysis

import "errors"

var (
	// ErrUnsupportedVersion indicates an artifact written by an incompatible version.
	ErrUnsupportedVersion = errors.New("unsupported analysis version")

	// ErrChannelOutOfRange indicates a channel index outside the artifact.
	ErrChannelOutOfRange = errors.New("channel out of range")
)
