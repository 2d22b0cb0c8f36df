// Package loudness implements an ITU-R BS.1770-4 / EBU R128 loudness meter.
//
// A [Meter] is fed blocks of multichannel audio and accumulates
// K-weighted mean-square power in 100 ms sub-blocks. From these it derives
// the integrated loudness (gated 400 ms blocks, -70 LUFS absolute and -10 LU
// relative gates), the loudness range (gated 3 s blocks, -20 LU relative gate,
// 10th to 95th percentile) and the per-channel true peak (4x oversampled).
//
// Results are defined at any time, so a meter can be queried mid-stream:
//
//	m, err := loudness.NewMeter(2, 48000)
//	if err != nil {
//	    return err
//	}
//	for buf := range blocks {
//	    _ = m.Process(buf)
//	}
//	fmt.Printf("%.1f LUFS, LRA %.1f LU\n", m.IntegratedLoudness(), m.LoudnessRange())
//
// When no block passes the gates the integrated loudness is reported as
// [Floor] and the range as zero.
package loudness
