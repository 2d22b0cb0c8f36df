package loudness

import "math"

const (
	oversample   = 4
	tapsPerPhase = 12
)

// interpolationTaps is a Hann-windowed sinc low-pass at the original
// Nyquist frequency, laid out by polyphase branch.
var interpolationTaps = designInterpolator()

func designInterpolator() [oversample][tapsPerPhase]float64 {
	const n = oversample * tapsPerPhase
	var h [n]float64
	centre := float64(n-1) / 2
	sum := 0.0
	for i := range h {
		x := (float64(i) - centre) / oversample
		sinc := 1.0
		if x != 0 {
			sinc = math.Sin(math.Pi*x) / (math.Pi * x)
		}
		window := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		h[i] = sinc * window
		sum += h[i]
	}

	var phases [oversample][tapsPerPhase]float64
	for i, v := range h {
		phases[i%oversample][i/oversample] = v * oversample / sum
	}
	return phases
}

// truePeakDetector tracks the maximum absolute value of one channel after
// 4x oversampling.
type truePeakDetector struct {
	history [tapsPerPhase]float64
	pos     int
	peak    float64
}

func (d *truePeakDetector) process(x float64) {
	d.pos = (d.pos + 1) % tapsPerPhase
	d.history[d.pos] = x

	if a := math.Abs(x); a > d.peak {
		d.peak = a
	}

	for p := range interpolationTaps {
		taps := &interpolationTaps[p]
		y := 0.0
		idx := d.pos
		for k := 0; k < tapsPerPhase; k++ {
			y += taps[k] * d.history[idx]
			idx--
			if idx < 0 {
				idx = tapsPerPhase - 1
			}
		}
		if a := math.Abs(y); a > d.peak {
			d.peak = a
		}
	}
}
