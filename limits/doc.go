// Package limits provides centralized bounds and validation functions for the
// audio analysis pipeline.
//
// # Bounds
//
//   - MaxChannels (16): the widest channel layout a buffer, content item or
//     playlist may carry. Zero channels is accepted as a degenerate layout.
//
//   - MinSampleRate / MaxSampleRate (8kHz to 192kHz): the supported range for
//     content and playlist sample rates.
//
//   - DefaultPoints (1024) / MaxPoints: the number of decimated (RMS, peak)
//     points produced per channel by an analysis run.
//
//   - MaxBufferFrames: the largest single block accepted anywhere in the
//     pipeline. Larger requests indicate a corrupt header or a caller bug.
//
// # Validation Functions
//
// Each validation function wraps a sentinel error with the offending value:
//
//	if err := limits.ValidateSampleRate(rate); err != nil {
//	    // errors.Is(err, limits.ErrSampleRate)
//	}
package limits
