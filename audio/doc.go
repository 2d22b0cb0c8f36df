// Package audio provides the sample containers and block processing used by
// the audio analysis pipeline.
//
// # Buffers
//
// [Buffers] is a mutable channels × frames block of float32 samples stored one
// slice per channel. It supports the operations the merger needs to stitch
// and mix overlapping content:
//
//	b := audio.NewBuffers(2, 4800)
//	part := audio.NewBuffers(2, 480)
//	_ = b.AccumulateFrames(part, 480, 0, 100) // mix part into b at frame 100
//	_ = b.Append(part)                        // extend b by 480 frames
//	_ = b.TrimStart(100)                      // drop the first 100 frames
//
// Combining buffers with different channel counts fails with
// [ErrChannelMismatch]; reading or writing outside a buffer fails with
// [ErrFrameRange].
//
// # Effects
//
// Content gain is applied through [GainEffect], optionally as part of an
// [EffectChain]:
//
//	gain, err := audio.NewGainEffect(-6)
//	chain := audio.NewEffectChain(gain)
//	err = chain.Process(block)
//
// # Resampler
//
// [Resampler] converts a stream of blocks between sample rates with linear
// interpolation, keeping state between blocks:
//
//	r, err := audio.NewResampler(audio.ResamplerConfig{
//	    InputRate:  44100,
//	    OutputRate: 48000,
//	    Channels:   2,
//	})
//	out, err := r.Resample(block)
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent mutation. Each pipeline
// stage owns the buffers it writes.
package audio
