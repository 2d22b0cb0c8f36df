package analyser

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/analysis"
	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/interfaces"
	"github.com/opd-ai/audioanalysis/timeline"
)

// SilenceFloor is the smallest sample magnitude the analyser records.
const SilenceFloor = 1e-7

// Params describes the audio an Analyser will receive.
type Params struct {
	Channels        int
	SampleRate      int
	Start           timeline.Time
	Length          timeline.Time
	SamplesPerPoint int64

	// Filter, if set, is fed every block
	Filter interfaces.LoudnessFilter
}

type bucket struct {
	sumSquares float64
	peak       float32
}

// Analyser accumulates level statistics over a contiguous stream of audio.
//
// An Analyser is not safe for concurrent use.
type Analyser struct {
	params Params

	current         []bucket
	samplePeak      []float32
	samplePeakFrame []int64
	done            int64
	first           timeline.Time

	result     *analysis.AudioAnalysis
	onProgress func(float64)
}

// New creates an analyser. SamplesPerPoint values below one are raised to one.
func New(p Params) *Analyser {
	p.SamplesPerPoint = max(p.SamplesPerPoint, 1)

	logrus.WithFields(logrus.Fields{
		"function":          "analyser.New",
		"channels":          p.Channels,
		"sample_rate":       p.SampleRate,
		"start":             p.Start.String(),
		"length":            p.Length.String(),
		"samples_per_point": p.SamplesPerPoint,
		"loudness":          p.Filter != nil,
	}).Debug("Creating analyser")

	return &Analyser{
		params:          p,
		current:         make([]bucket, p.Channels),
		samplePeak:      make([]float32, p.Channels),
		samplePeakFrame: make([]int64, p.Channels),
		result:          analysis.NewAudioAnalysis(p.Channels),
	}
}

// OnProgress sets a callback receiving the fraction of the playlist analysed.
func (a *Analyser) OnProgress(callback func(float64)) {
	a.onProgress = callback
}

// HandleAudio implements interfaces.AudioHandler.
func (a *Analyser) HandleAudio(buf *audio.Buffers, t timeline.Time) error {
	return a.Analyse(buf, t)
}

// Analyse accumulates buf, which starts at t. Blocks must arrive in time
// order with no gaps.
func (a *Analyser) Analyse(buf *audio.Buffers, t timeline.Time) error {
	if t < a.params.Start {
		return fmt.Errorf("%w: block at %v, start %v", ErrOrderingViolation, t, a.params.Start)
	}
	if buf.Channels() != a.params.Channels {
		return fmt.Errorf("%w: analysing %d channels, block has %d",
			audio.ErrChannelMismatch, a.params.Channels, buf.Channels())
	}

	if a.params.Filter != nil {
		if err := a.params.Filter.Process(buf); err != nil {
			return fmt.Errorf("loudness filter failed: %w", err)
		}
	}

	if a.done == 0 {
		a.first = t
	}

	frames := buf.Frames()
	spp := a.params.SamplesPerPoint
	for ch := 0; ch < a.params.Channels; ch++ {
		cur := &a.current[ch]
		for i, s := range buf.Data(ch) {
			as := float32(math.Abs(float64(s)))
			if as < SilenceFloor {
				// Keeps every point finite in dB
				s, as = SilenceFloor, SilenceFloor
			}
			cur.sumSquares += float64(s) * float64(s)
			cur.peak = max(cur.peak, as)

			frame := a.done + int64(i)
			if as > a.samplePeak[ch] {
				a.samplePeak[ch] = as
				a.samplePeakFrame[ch] = frame
			}

			if (frame+1)%spp == 0 {
				point := analysis.Point{
					RMS:  float32(math.Sqrt(cur.sumSquares / float64(spp))),
					Peak: cur.peak,
				}
				// ch is in range by construction
				_ = a.result.AddPoint(ch, point)
				*cur = bucket{}
			}
		}
	}
	a.done += int64(frames)

	if a.onProgress != nil && a.params.Length > a.params.Start {
		a.onProgress(float64(t-a.params.Start) / float64(a.params.Length-a.params.Start))
	}
	return nil
}

// Frames returns the number of frames analysed so far.
func (a *Analyser) Frames() int64 {
	return a.done
}

// Finish completes the artifact: sample peaks, loudness results when a filter
// was used, samples per point and sample rate. Partial buckets are discarded.
// The analyser must not be used afterwards.
func (a *Analyser) Finish() *analysis.AudioAnalysis {
	peaks := make([]analysis.PeakTime, a.params.Channels)
	for ch := range peaks {
		frame := a.samplePeakFrame[ch]
		peaks[ch] = analysis.PeakTime{
			Peak:  a.samplePeak[ch],
			Frame: frame,
			Time:  a.first + timeline.FromFrames(frame, a.params.SampleRate),
		}
	}
	a.result.SetSamplePeak(peaks)

	if f := a.params.Filter; f != nil {
		a.result.SetTruePeak(f.TruePeak())
		a.result.SetIntegratedLoudness(f.IntegratedLoudness())
		a.result.SetLoudnessRange(f.LoudnessRange())
	}

	a.result.SetSamplesPerPoint(a.params.SamplesPerPoint)
	a.result.SetSampleRate(a.params.SampleRate)

	logrus.WithFields(logrus.Fields{
		"function": "Analyser.Finish",
		"frames":   a.done,
		"channels": a.params.Channels,
	}).Debug("Analysis complete")

	return a.result
}

// SamplesPerPoint returns the bucket size giving about points buckets over
// totalFrames, and at least one frame per bucket.
func SamplesPerPoint(totalFrames int64, points int) int64 {
	if points <= 0 {
		return max(totalFrames, 1)
	}
	return max(totalFrames/int64(points), 1)
}
