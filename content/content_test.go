package content

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/timeline"
)

func writeWAVFile(t *testing.T, dir, name string, buf *audio.Buffers, rate, bitDepth int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, buf, rate, bitDepth))
	require.NoError(t, f.Close())
	return path
}

func readAll(t *testing.T, src Source, block int) *audio.Buffers {
	t.Helper()
	out := audio.NewBuffers(src.Info().Channels, 0)
	for {
		b, err := src.Read(block)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		require.NoError(t, out.Append(b))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	for _, bits := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%d-bit", bits), func(t *testing.T) {
			signal := Tone(2, 48000, 4000, 440, 0.5)
			path := writeWAVFile(t, t.TempDir(), "tone.wav", signal, 48000, bits)

			src, err := Open(path)
			require.NoError(t, err)
			defer src.Close()

			info := src.Info()
			assert.Equal(t, Info{Channels: 2, SampleRate: 48000, Frames: 4000, BitDepth: bits}, info)

			got := readAll(t, src, 1000)
			require.Equal(t, 4000, got.Frames())
			for ch := 0; ch < 2; ch++ {
				for i, s := range signal.Data(ch) {
					require.InDelta(t, s, got.Data(ch)[i], 1.0/16384, "channel %d frame %d", ch, i)
				}
			}
		})
	}
}

func TestWAVSeek(t *testing.T) {
	signal := Impulse(1, 1000, 0, 700, 0.5)
	path := writeWAVFile(t, t.TempDir(), "impulse.wav", signal, 48000, 16)

	src, err := OpenWAV(path)
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, src.Seek(600))
	b, err := src.Read(200)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, b.Data(0)[100], 1e-4)

	// Seeking backwards reopens the file
	require.NoError(t, src.Seek(650))
	b, err = src.Read(100)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, b.Data(0)[50], 1e-4)

	require.NoError(t, src.Seek(5000))
	_, err = src.Read(10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenRejectsUnknownAndInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	for _, name := range []string{"junk.wav", "junk.flac", "junk.opus"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("this is not audio data at all, not even close"), 0o644))
		_, err := Open(path)
		assert.Error(t, err, name)
	}

	_, err = Open(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}

func TestDecodeLE(t *testing.T) {
	// 24-bit stereo: left = -1 (0xFFFFFF), right = 0x400000 (half scale)
	data := []byte{0xff, 0xff, 0xff, 0x00, 0x00, 0x40}
	b, err := decodeLE(data, 24, 2)
	require.NoError(t, err)
	require.Equal(t, 1, b.Frames())
	assert.Equal(t, float32(-1.0/8388608), b.Data(0)[0])
	assert.Equal(t, float32(0.5), b.Data(1)[0])

	_, err = decodeLE([]byte{1, 2, 3}, 16, 1)
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = decodeLE([]byte{1, 2}, 12, 1)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource(Impulse(2, 10, 1, 4, 0.25), 48000)
	assert.Equal(t, Info{Channels: 2, SampleRate: 48000, Frames: 10, BitDepth: 32}, src.Info())

	b, err := src.Read(6)
	require.NoError(t, err)
	assert.Equal(t, 6, b.Frames())
	assert.Equal(t, float32(0.25), b.Data(1)[4])

	b, err = src.Read(6)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Frames())

	_, err = src.Read(6)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Seek(4))
	b, err = src.Read(1)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), b.Data(1)[0])

	require.NoError(t, src.Close())
	_, err = src.Read(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func memoryFactory(signal *audio.Buffers, rate int) SourceFactory {
	return func() (Source, error) { return NewMemorySource(signal, rate), nil }
}

func TestContentTiming(t *testing.T) {
	c, err := NewFromSource("tone", memoryFactory(Tone(2, 48000, 96000, 440, 0.1), 48000), timeline.FromSeconds(3), -6)
	require.NoError(t, err)

	assert.True(t, c.HasAudio())
	assert.Equal(t, -6.0, c.Gain())
	assert.Equal(t, timeline.FromSeconds(2), c.Length())
	assert.Equal(t, timeline.FromSeconds(5), c.End())

	c.SetTrimStart(timeline.FromSeconds(0.5))
	assert.Equal(t, int64(24000), c.TrimFrames())
	assert.Equal(t, timeline.FromSeconds(1.5), c.Length())

	c.SetTrimStart(timeline.FromSeconds(10))
	assert.Equal(t, timeline.Time(0), c.Length())
	assert.False(t, c.HasAudio())
}

func TestContentValidation(t *testing.T) {
	factory := memoryFactory(Silence(1, 10), 48000)

	_, err := NewFromSource("loud", factory, 0, 100)
	assert.Error(t, err)

	_, err = NewFromSource("early", factory, -1, 0)
	assert.Error(t, err)

	_, err = NewFromSource("slow", memoryFactory(Silence(1, 10), 100), 0, 0)
	assert.Error(t, err)

	failing := func() (Source, error) { return nil, ErrUnsupportedFormat }
	_, err = NewFromSource("broken", failing, 0, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDigests(t *testing.T) {
	dir := t.TempDir()
	a := writeWAVFile(t, dir, "a.wav", Tone(1, 48000, 1000, 440, 0.5), 48000, 16)
	b := writeWAVFile(t, dir, "b.wav", Tone(1, 48000, 1000, 441, 0.5), 48000, 16)
	aCopy := writeWAVFile(t, dir, "a2.wav", Tone(1, 48000, 1000, 440, 0.5), 48000, 16)

	ca, err := New(a, 0, 0)
	require.NoError(t, err)
	cb, err := New(b, 0, 0)
	require.NoError(t, err)
	cCopy, err := New(aCopy, 0, 0)
	require.NoError(t, err)

	da, err := ca.Digest()
	require.NoError(t, err)
	db, err := cb.Digest()
	require.NoError(t, err)
	dCopy, err := cCopy.Digest()
	require.NoError(t, err)

	assert.Len(t, da, 64)
	assert.NotEqual(t, da, db)
	assert.Equal(t, da, dCopy)

	m1, err := SourceDigest(memoryFactory(Tone(1, 48000, 100, 440, 0.5), 48000))
	require.NoError(t, err)
	m2, err := SourceDigest(memoryFactory(Tone(1, 44100, 100, 440, 0.5), 44100))
	require.NoError(t, err)
	assert.NotEqual(t, m1, m2)
}
