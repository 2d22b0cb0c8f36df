package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/audioanalysis/timeline"
)

func sampleAnalysis(t *testing.T) *AudioAnalysis {
	t.Helper()
	a := NewAudioAnalysis(2)
	require.NoError(t, a.AddPoint(0, Point{RMS: 0.25, Peak: 0.5}))
	require.NoError(t, a.AddPoint(0, Point{RMS: 0.125, Peak: 0.75}))
	require.NoError(t, a.AddPoint(1, Point{RMS: 0.1, Peak: 0.2}))
	require.NoError(t, a.AddPoint(1, Point{RMS: 0.3, Peak: 0.4}))
	a.SetSamplePeak([]PeakTime{
		{Peak: 0.75, Frame: 1500, Time: timeline.FromFrames(1500, 48000)},
		{Peak: 0.4, Frame: 10, Time: timeline.FromFrames(10, 48000)},
	})
	a.SetSamplesPerPoint(1000)
	a.SetSampleRate(48000)
	return a
}

func TestAddPointChannelRange(t *testing.T) {
	a := NewAudioAnalysis(1)
	assert.NoError(t, a.AddPoint(0, Point{}))
	assert.ErrorIs(t, a.AddPoint(1, Point{}), ErrChannelOutOfRange)
	assert.ErrorIs(t, a.AddPoint(-1, Point{}), ErrChannelOutOfRange)
	assert.Len(t, a.Points(0), 1)
	assert.Nil(t, a.Points(3))
}

func TestPointJSONIsPair(t *testing.T) {
	data, err := json.Marshal(Point{RMS: 0.5, Peak: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `[0.5, 1]`, string(data))

	var p Point
	require.NoError(t, json.Unmarshal([]byte(`[0.25, 0.75]`), &p))
	assert.Equal(t, Point{RMS: 0.25, Peak: 0.75}, p)
}

func TestWriteReadRoundTrip(t *testing.T) {
	a := sampleAnalysis(t)
	a.SetTruePeak([]float32{0.8, 0.45})
	a.SetIntegratedLoudness(-23.5)
	a.SetLoudnessRange(4.25)
	a.SetAnalysisGain(-3)

	path := filepath.Join(t.TempDir(), "a.audio.json")
	require.NoError(t, a.Write(path))

	b, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmptyAnalysisRoundTrip(t *testing.T) {
	a := NewAudioAnalysis(0)
	path := filepath.Join(t.TempDir(), "empty.audio.json")
	require.NoError(t, a.Write(path))

	b, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Channels())
	_, ok := b.IntegratedLoudness()
	assert.False(t, ok)
	_, ok = b.TruePeak()
	assert.False(t, ok)
	_, channel := b.OverallSamplePeak()
	assert.Equal(t, -1, channel)
}

func TestWriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	require.NoError(t, sampleAnalysis(t).Write(first))
	require.NoError(t, sampleAnalysis(t).Write(second))

	x, err := os.ReadFile(first)
	require.NoError(t, err)
	y, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, x, y)
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	// The destination is an existing non-empty directory so the rename fails.
	path := filepath.Join(dir, "target")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "inner"), 0o755))

	err := sampleAnalysis(t).Write(path)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "target", entries[0].Name())
}

func TestReadRejectsOtherVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "data": []}`), 0o644))

	_, err := Read(path)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestOverallPeaks(t *testing.T) {
	a := sampleAnalysis(t)
	peak, channel := a.OverallSamplePeak()
	assert.Equal(t, 0, channel)
	assert.Equal(t, int64(1500), peak.Frame)

	_, ok := a.OverallTruePeak()
	assert.False(t, ok)
	a.SetTruePeak([]float32{0.3, 0.9})
	tp, ok := a.OverallTruePeak()
	assert.True(t, ok)
	assert.InDelta(t, 0.9, tp, 1e-6)
}

func TestGainCorrection(t *testing.T) {
	a := NewAudioAnalysis(1)
	assert.Zero(t, a.GainCorrection(6))

	a.SetAnalysisGain(-2)
	assert.InDelta(t, 5.0, a.GainCorrection(3), 1e-9)
	assert.InDelta(t, 0.0, a.GainCorrection(-2), 1e-9)
}

func TestPathIdentifiesItems(t *testing.T) {
	dir := "/films/x/analysis"
	sig := PathItem{Digest: "sig"}
	later := PathItem{Digest: "sig", Position: timeline.FromSeconds(0.5), Gain: 6}

	a := Path(dir, []PathItem{sig})
	assert.Equal(t, dir, filepath.Dir(a))
	assert.True(t, filepath.Ext(a) == ".json")
	assert.Equal(t, a, Path(dir, []PathItem{sig}))

	// Repeating an item at another position is a different mix
	assert.NotEqual(t, a, Path(dir, []PathItem{sig, later}))
	assert.NotEqual(t, Path(dir, []PathItem{sig, later}), Path(dir, []PathItem{later, sig}))

	trimmed := sig
	trimmed.Trim = timeline.FromSeconds(1)
	assert.NotEqual(t, a, Path(dir, []PathItem{trimmed}))

	// Gain only counts when items are mixed
	louder := sig
	louder.Gain = 3
	assert.Equal(t, a, Path(dir, []PathItem{louder}))
	assert.NotEqual(t, Path(dir, []PathItem{sig, later}), Path(dir, []PathItem{louder, later}))
}
