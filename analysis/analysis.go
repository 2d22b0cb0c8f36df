package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/audioanalysis/timeline"
)

// Version is the on-disk format version written by this package.
const Version = 1

// Point is one decimated bucket: the RMS and the peak absolute sample value
// over SamplesPerPoint consecutive frames of one channel.
type Point struct {
	RMS  float32
	Peak float32
}

// MarshalJSON encodes a point as a compact [rms, peak] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float32{p.RMS, p.Peak})
}

// UnmarshalJSON decodes a [rms, peak] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float32
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.RMS, p.Peak = pair[0], pair[1]
	return nil
}

// PeakTime records the loudest absolute sample of a channel and where it was.
type PeakTime struct {
	Peak  float32       `json:"peak"`
	Frame int64         `json:"frame"` // Frame index from the analysis start
	Time  timeline.Time `json:"time"`  // Timeline position of that frame
}

// AudioAnalysis is the result of analysing the audio of a set of content.
//
// It is built up by a single analysis run and must not be modified once
// written.
type AudioAnalysis struct {
	data               [][]Point
	samplePeak         []PeakTime
	truePeak           []float32
	integratedLoudness *float32
	loudnessRange      *float32
	analysisGain       *float64
	samplesPerPoint    int64
	sampleRate         int
}

// NewAudioAnalysis creates an empty analysis for the given channel count.
func NewAudioAnalysis(channels int) *AudioAnalysis {
	data := make([][]Point, channels)
	for ch := range data {
		data[ch] = make([]Point, 0)
	}
	return &AudioAnalysis{data: data, samplePeak: make([]PeakTime, 0)}
}

// Channels returns the number of channels.
func (a *AudioAnalysis) Channels() int {
	return len(a.data)
}

// AddPoint appends a point to channel ch.
func (a *AudioAnalysis) AddPoint(ch int, p Point) error {
	if ch < 0 || ch >= len(a.data) {
		return fmt.Errorf("%w: %d of %d", ErrChannelOutOfRange, ch, len(a.data))
	}
	a.data[ch] = append(a.data[ch], p)
	return nil
}

// Points returns the points of channel ch. The slice must not be modified.
func (a *AudioAnalysis) Points(ch int) []Point {
	if ch < 0 || ch >= len(a.data) {
		return nil
	}
	return a.data[ch]
}

// SetSamplePeak records the per-channel sample peaks.
func (a *AudioAnalysis) SetSamplePeak(peaks []PeakTime) {
	a.samplePeak = peaks
}

// SamplePeak returns the per-channel sample peaks.
func (a *AudioAnalysis) SamplePeak() []PeakTime {
	return a.samplePeak
}

// OverallSamplePeak returns the loudest sample peak across all channels and
// the channel it was on. The channel is -1 when there are no channels.
func (a *AudioAnalysis) OverallSamplePeak() (PeakTime, int) {
	best := PeakTime{}
	channel := -1
	for ch, p := range a.samplePeak {
		if channel < 0 || p.Peak > best.Peak {
			best, channel = p, ch
		}
	}
	return best, channel
}

// SetTruePeak records the per-channel true peaks (linear).
func (a *AudioAnalysis) SetTruePeak(peaks []float32) {
	a.truePeak = peaks
}

// TruePeak returns the per-channel true peaks, if loudness was measured.
func (a *AudioAnalysis) TruePeak() ([]float32, bool) {
	return a.truePeak, a.truePeak != nil
}

// OverallTruePeak returns the highest true peak across channels.
func (a *AudioAnalysis) OverallTruePeak() (float32, bool) {
	if len(a.truePeak) == 0 {
		return 0, false
	}
	var peak float32
	for _, p := range a.truePeak {
		peak = max(peak, p)
	}
	return peak, true
}

// SetIntegratedLoudness records the integrated loudness in LUFS.
func (a *AudioAnalysis) SetIntegratedLoudness(lufs float32) {
	a.integratedLoudness = &lufs
}

// IntegratedLoudness returns the integrated loudness, if it was measured.
func (a *AudioAnalysis) IntegratedLoudness() (float32, bool) {
	if a.integratedLoudness == nil {
		return 0, false
	}
	return *a.integratedLoudness, true
}

// SetLoudnessRange records the loudness range in LU.
func (a *AudioAnalysis) SetLoudnessRange(lu float32) {
	a.loudnessRange = &lu
}

// LoudnessRange returns the loudness range, if it was measured.
func (a *AudioAnalysis) LoudnessRange() (float32, bool) {
	if a.loudnessRange == nil {
		return 0, false
	}
	return *a.loudnessRange, true
}

// SetAnalysisGain records the gain (dB) of the single analysed content item.
func (a *AudioAnalysis) SetAnalysisGain(db float64) {
	a.analysisGain = &db
}

// AnalysisGain returns the recorded analysis gain, if any.
func (a *AudioAnalysis) AnalysisGain() (float64, bool) {
	if a.analysisGain == nil {
		return 0, false
	}
	return *a.analysisGain, true
}

// GainCorrection returns how far the content's gain has moved since the
// analysis was made. It is zero when no analysis gain was recorded.
func (a *AudioAnalysis) GainCorrection(currentGain float64) float64 {
	if a.analysisGain == nil {
		return 0
	}
	return currentGain - *a.analysisGain
}

// SetSamplesPerPoint records the bucket size.
func (a *AudioAnalysis) SetSamplesPerPoint(n int64) {
	a.samplesPerPoint = n
}

// SamplesPerPoint returns the bucket size.
func (a *AudioAnalysis) SamplesPerPoint() int64 {
	return a.samplesPerPoint
}

// SetSampleRate records the sample rate of the analysed audio.
func (a *AudioAnalysis) SetSampleRate(rate int) {
	a.sampleRate = rate
}

// SampleRate returns the sample rate of the analysed audio.
func (a *AudioAnalysis) SampleRate() int {
	return a.sampleRate
}

type analysisJSON struct {
	Version            int        `json:"version"`
	SampleRate         int        `json:"sample_rate"`
	SamplesPerPoint    int64      `json:"samples_per_point"`
	Data               [][]Point  `json:"data"`
	SamplePeak         []PeakTime `json:"sample_peak"`
	TruePeak           []float32  `json:"true_peak,omitempty"`
	IntegratedLoudness *float32   `json:"integrated_loudness,omitempty"`
	LoudnessRange      *float32   `json:"loudness_range,omitempty"`
	AnalysisGain       *float64   `json:"analysis_gain,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a *AudioAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(analysisJSON{
		Version:            Version,
		SampleRate:         a.sampleRate,
		SamplesPerPoint:    a.samplesPerPoint,
		Data:               a.data,
		SamplePeak:         a.samplePeak,
		TruePeak:           a.truePeak,
		IntegratedLoudness: a.integratedLoudness,
		LoudnessRange:      a.loudnessRange,
		AnalysisGain:       a.analysisGain,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *AudioAnalysis) UnmarshalJSON(data []byte) error {
	var raw analysisJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw.Version)
	}
	for ch := range raw.Data {
		if raw.Data[ch] == nil {
			raw.Data[ch] = make([]Point, 0)
		}
	}
	if raw.Data == nil {
		raw.Data = make([][]Point, 0)
	}
	if raw.SamplePeak == nil {
		raw.SamplePeak = make([]PeakTime, 0)
	}
	*a = AudioAnalysis{
		data:               raw.Data,
		samplePeak:         raw.SamplePeak,
		truePeak:           raw.TruePeak,
		integratedLoudness: raw.IntegratedLoudness,
		loudnessRange:      raw.LoudnessRange,
		analysisGain:       raw.AnalysisGain,
		samplesPerPoint:    raw.SamplesPerPoint,
		sampleRate:         raw.SampleRate,
	}
	return nil
}
