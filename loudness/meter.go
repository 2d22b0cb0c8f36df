package loudness

import (
	"fmt"
	"math"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/limits"
)

const (
	// Floor is the loudness reported when nothing passes the absolute gate.
	Floor = -70.0

	absoluteGate      = -70.0
	relativeGate      = -10.0
	rangeRelativeGate = -20.0

	momentarySubBlocks = 4  // 400 ms
	shortTermSubBlocks = 30 // 3 s

	rangeLowPercentile  = 0.10
	rangeHighPercentile = 0.95

	surroundWeight = 1.41
)

// Meter measures loudness and true peak of a multichannel stream.
//
// A Meter is not safe for concurrent use.
type Meter struct {
	channels int
	rate     int
	weights  []float64
	filters  []*kWeighting
	peaks    []truePeakDetector

	subBlockFrames int
	subBlockFill   int
	subBlockSum    float64 // channel-weighted sum of squares in the current sub-block

	recent          []float64 // weighted mean-square power of the latest sub-blocks
	momentaryPowers []float64
	shortTermPowers []float64
}

// NewMeter creates a meter for audio with the given layout.
func NewMeter(channels, rate int) (*Meter, error) {
	if err := limits.ValidateChannels(channels); err != nil {
		return nil, err
	}
	if err := limits.ValidateSampleRate(rate); err != nil {
		return nil, err
	}

	m := &Meter{
		channels:       channels,
		rate:           rate,
		weights:        channelWeights(channels),
		filters:        make([]*kWeighting, channels),
		peaks:          make([]truePeakDetector, channels),
		subBlockFrames: (rate + 5) / 10,
		recent:         make([]float64, 0, shortTermSubBlocks),
	}
	for ch := range m.filters {
		m.filters[ch] = newKWeighting(rate)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewMeter",
		"channels": channels,
		"rate":     rate,
	}).Debug("Created loudness meter")

	return m, nil
}

// channelWeights follows the 5.1 layout L, R, C, LFE, Ls, Rs: the LFE is
// excluded and the surrounds are boosted.
func channelWeights(channels int) []float64 {
	w := make([]float64, channels)
	for ch := range w {
		w[ch] = 1
	}
	if channels >= 6 {
		w[3] = 0
		w[4] = surroundWeight
		w[5] = surroundWeight
	}
	return w
}

// Process feeds a block of audio to the meter.
func (m *Meter) Process(buf *audio.Buffers) error {
	if buf.Channels() != m.channels {
		return fmt.Errorf("%w: meter has %d channels, buffer has %d",
			audio.ErrChannelMismatch, m.channels, buf.Channels())
	}

	frames := buf.Frames()
	offset := 0
	for offset < frames {
		n := min(frames-offset, m.subBlockFrames-m.subBlockFill)
		for ch := 0; ch < m.channels; ch++ {
			data := buf.Data(ch)[offset : offset+n]
			filter := m.filters[ch]
			peak := &m.peaks[ch]
			sum := 0.0
			for _, s := range data {
				x := float64(s)
				peak.process(x)
				y := filter.process(x)
				sum += y * y
			}
			m.subBlockSum += m.weights[ch] * sum
		}
		m.subBlockFill += n
		offset += n

		if m.subBlockFill == m.subBlockFrames {
			m.completeSubBlock()
		}
	}
	return nil
}

func (m *Meter) completeSubBlock() {
	power := m.subBlockSum / float64(m.subBlockFrames)
	m.subBlockSum = 0
	m.subBlockFill = 0

	if len(m.recent) == shortTermSubBlocks {
		copy(m.recent, m.recent[1:])
		m.recent = m.recent[:shortTermSubBlocks-1]
	}
	m.recent = append(m.recent, power)

	if len(m.recent) >= momentarySubBlocks {
		m.momentaryPowers = append(m.momentaryPowers, mean(m.recent[len(m.recent)-momentarySubBlocks:]))
	}
	if len(m.recent) == shortTermSubBlocks {
		m.shortTermPowers = append(m.shortTermPowers, mean(m.recent))
	}
}

// IntegratedLoudness returns the gated integrated loudness in LUFS.
func (m *Meter) IntegratedLoudness() float32 {
	gated := gate(m.momentaryPowers, relativeGate)
	if len(gated) == 0 {
		return Floor
	}
	return float32(toLUFS(mean(gated)))
}

// LoudnessRange returns the loudness range in LU.
func (m *Meter) LoudnessRange() float32 {
	gated := gate(m.shortTermPowers, rangeRelativeGate)
	if len(gated) == 0 {
		return 0
	}

	levels := make([]float64, len(gated))
	for i, p := range gated {
		levels[i] = toLUFS(p)
	}
	slices.Sort(levels)

	low := levels[percentileIndex(len(levels), rangeLowPercentile)]
	high := levels[percentileIndex(len(levels), rangeHighPercentile)]
	return float32(high - low)
}

// TruePeak returns the linear true peak of each channel.
func (m *Meter) TruePeak() []float32 {
	peaks := make([]float32, m.channels)
	for ch := range m.peaks {
		peaks[ch] = float32(m.peaks[ch].peak)
	}
	return peaks
}

// gate applies the absolute gate and then a gate relative to the loudness of
// the absolutely gated blocks, returning the surviving powers.
func gate(powers []float64, relative float64) []float64 {
	absolute := make([]float64, 0, len(powers))
	for _, p := range powers {
		if toLUFS(p) > absoluteGate {
			absolute = append(absolute, p)
		}
	}
	if len(absolute) == 0 {
		return nil
	}

	threshold := toLUFS(mean(absolute)) + relative
	gated := absolute[:0]
	for _, p := range absolute {
		if toLUFS(p) > threshold {
			gated = append(gated, p)
		}
	}
	return gated
}

func toLUFS(power float64) float64 {
	if power <= 0 {
		return math.Inf(-1)
	}
	return -0.691 + 10*math.Log10(power)
}

func mean(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func percentileIndex(n int, p float64) int {
	i := int(math.Round(p * float64(n-1)))
	return min(max(i, 0), n-1)
}
