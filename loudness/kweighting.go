package loudness

import "math"

// biquad is a second-order IIR section in transposed direct form II.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

// kWeighting is the two-stage BS.1770 weighting filter for one channel: a
// high-shelf modelling the head followed by the RLB high-pass.
type kWeighting struct {
	shelf    biquad
	highPass biquad
}

// newKWeighting derives the filter coefficients for any sample rate from
// the analogue prototypes, which reproduces the published 48 kHz
// coefficients exactly.
func newKWeighting(rate int) *kWeighting {
	fs := float64(rate)

	const (
		shelfF0   = 1681.974450955533
		shelfGain = 3.999843853973347
		shelfQ    = 0.7071752369554196
	)
	k := math.Tan(math.Pi * shelfF0 / fs)
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1 + k/shelfQ + k*k
	shelf := biquad{
		b0: (vh + vb*k/shelfQ + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/shelfQ + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/shelfQ + k*k) / a0,
	}

	const (
		highPassF0 = 38.13547087602444
		highPassQ  = 0.5003270373238773
	)
	k = math.Tan(math.Pi * highPassF0 / fs)
	a0 = 1 + k/highPassQ + k*k
	highPass := biquad{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/highPassQ + k*k) / a0,
	}

	return &kWeighting{shelf: shelf, highPass: highPass}
}

func (k *kWeighting) process(x float64) float64 {
	return k.highPass.process(k.shelf.process(x))
}
