package player

import "errors"

var (
	// ErrNoHandler indicates a pass with no audio handler registered.
	ErrNoHandler = errors.New("no audio handler")

	// ErrFrameRate indicates a playlist frame rate whose frames do not map
	// exactly onto timeline ticks.
	ErrFrameRate = errors.New("frame rate not representable on the timeline")

	// ErrNotSeeked indicates a pass before the first seek.
	ErrNotSeeked = errors.New("player has not been positioned")
)
