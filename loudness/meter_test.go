package loudness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/limits"
)

const testRate = 48000

// sine returns a block of a sine at freq with the given peak amplitude on
// every channel, continuing from frame offset.
func sine(channels, frames, offset int, freq, amplitude float64) *audio.Buffers {
	b := audio.NewBuffers(channels, frames)
	for ch := 0; ch < channels; ch++ {
		data := b.Data(ch)
		for i := range data {
			phase := 2 * math.Pi * freq * float64(offset+i) / testRate
			data[i] = float32(amplitude * math.Sin(phase))
		}
	}
	return b
}

// feed pushes seconds of a sine through m in 1000-frame blocks.
func feed(t *testing.T, m *Meter, channels int, seconds, freq, amplitude float64) {
	t.Helper()
	total := int(seconds * testRate)
	for offset := 0; offset < total; offset += 1000 {
		n := min(1000, total-offset)
		require.NoError(t, m.Process(sine(channels, n, offset, freq, amplitude)))
	}
}

func TestNewMeterValidates(t *testing.T) {
	_, err := NewMeter(limits.MaxChannels+1, testRate)
	assert.ErrorIs(t, err, limits.ErrChannelCount)

	_, err = NewMeter(2, 1000)
	assert.ErrorIs(t, err, limits.ErrSampleRate)
}

func TestReferenceSineMeasuresMinus23(t *testing.T) {
	m, err := NewMeter(2, testRate)
	require.NoError(t, err)

	feed(t, m, 2, 10, 997, math.Pow(10, -23.0/20))

	assert.InDelta(t, -23.0, m.IntegratedLoudness(), 0.1)
	assert.InDelta(t, 0.0, m.LoudnessRange(), 0.1)
}

func TestSilenceIsUndefined(t *testing.T) {
	m, err := NewMeter(2, testRate)
	require.NoError(t, err)

	require.NoError(t, m.Process(audio.NewBuffers(2, 5*testRate)))

	assert.Equal(t, float32(Floor), m.IntegratedLoudness())
	assert.Equal(t, float32(0), m.LoudnessRange())
	assert.Equal(t, []float32{0, 0}, m.TruePeak())
}

func TestNoAudioIsUndefined(t *testing.T) {
	m, err := NewMeter(1, testRate)
	require.NoError(t, err)

	assert.Equal(t, float32(Floor), m.IntegratedLoudness())
	assert.Equal(t, float32(0), m.LoudnessRange())
}

func TestStepChangeWidensRange(t *testing.T) {
	m, err := NewMeter(1, testRate)
	require.NoError(t, err)

	feed(t, m, 1, 20, 1000, math.Pow(10, -30.0/20))
	feed(t, m, 1, 20, 1000, math.Pow(10, -20.0/20))

	lra := m.LoudnessRange()
	assert.Greater(t, lra, float32(8))
	assert.Less(t, lra, float32(11))
}

func TestRelativeGateIgnoresQuietPassages(t *testing.T) {
	loud, err := NewMeter(1, testRate)
	require.NoError(t, err)
	feed(t, loud, 1, 10, 1000, 0.1)

	mixed, err := NewMeter(1, testRate)
	require.NoError(t, err)
	feed(t, mixed, 1, 10, 1000, 0.1)
	feed(t, mixed, 1, 10, 1000, 0.001) // 40 dB down, below the relative gate

	assert.InDelta(t, loud.IntegratedLoudness(), mixed.IntegratedLoudness(), 0.1)
}

func TestTruePeakOfSine(t *testing.T) {
	m, err := NewMeter(2, testRate)
	require.NoError(t, err)

	feed(t, m, 2, 1, 997, 0.5)

	peaks := m.TruePeak()
	require.Len(t, peaks, 2)
	for _, p := range peaks {
		assert.InDelta(t, 0.5, p, 0.01)
	}
}

func TestTruePeakExceedsSamplePeak(t *testing.T) {
	m, err := NewMeter(1, testRate)
	require.NoError(t, err)

	// A sine at a quarter of the sample rate sampled 45 degrees off its
	// crests: every sample is 0.5/sqrt(2) but the waveform reaches 0.5.
	b := audio.NewBuffers(1, 4800)
	data := b.Data(0)
	for i := range data {
		data[i] = float32(0.5 * math.Sin(math.Pi/2*float64(i)+math.Pi/4))
	}
	require.NoError(t, m.Process(b))

	peak := m.TruePeak()[0]
	assert.Greater(t, peak, float32(0.5/math.Sqrt2+0.05))
	assert.InDelta(t, 0.5, peak, 0.03)
}

func TestChannelMismatch(t *testing.T) {
	m, err := NewMeter(2, testRate)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Process(audio.NewBuffers(1, 10)), audio.ErrChannelMismatch)
}

func TestChannelWeights(t *testing.T) {
	assert.Equal(t, []float64{1, 1}, channelWeights(2))
	assert.Equal(t, []float64{1, 1, 1, 0, 1.41, 1.41}, channelWeights(6))
	assert.Equal(t, []float64{1, 1, 1, 0, 1.41, 1.41, 1, 1}, channelWeights(8))
}

func TestLFEDoesNotContribute(t *testing.T) {
	withLFE, err := NewMeter(6, testRate)
	require.NoError(t, err)

	b := audio.NewBuffers(6, testRate)
	lfe := sine(1, testRate, 0, 60, 0.5)
	copy(b.Data(3), lfe.Data(0))
	for i := 0; i < 5; i++ {
		require.NoError(t, withLFE.Process(b))
	}

	assert.Equal(t, float32(Floor), withLFE.IntegratedLoudness())
}

func TestKWeightingMatchesPublished48kCoefficients(t *testing.T) {
	k := newKWeighting(48000)

	assert.InDelta(t, 1.53512485958697, k.shelf.b0, 1e-9)
	assert.InDelta(t, -2.69169618940638, k.shelf.b1, 1e-9)
	assert.InDelta(t, 1.19839281085285, k.shelf.b2, 1e-9)
	assert.InDelta(t, -1.69065929318241, k.shelf.a1, 1e-9)
	assert.InDelta(t, 0.73248077421585, k.shelf.a2, 1e-9)

	assert.InDelta(t, -1.99004745483398, k.highPass.a1, 1e-9)
	assert.InDelta(t, 0.99007225036621, k.highPass.a2, 1e-9)
}
