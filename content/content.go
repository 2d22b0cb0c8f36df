package content

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/limits"
	"github.com/opd-ai/audioanalysis/timeline"
)

// Content is an audio item on a playlist. It implements interfaces.Content.
type Content struct {
	name     string
	open     SourceFactory
	info     Info
	position timeline.Time
	trim     timeline.Time
	gain     float64

	digestOnce sync.Once
	digest     string
	digestErr  error
	digestFunc func() (string, error)
}

// New creates content for the file at path, placed at position.
func New(path string, position timeline.Time, gainDB float64) (*Content, error) {
	open := func() (Source, error) { return Open(path) }
	c, err := newContent(path, open, position, gainDB)
	if err != nil {
		return nil, err
	}
	c.digestFunc = func() (string, error) { return FileDigest(path) }
	return c, nil
}

// NewFromSource creates content read through open. Its digest is computed
// from the decoded samples.
func NewFromSource(name string, open SourceFactory, position timeline.Time, gainDB float64) (*Content, error) {
	c, err := newContent(name, open, position, gainDB)
	if err != nil {
		return nil, err
	}
	c.digestFunc = func() (string, error) { return SourceDigest(open) }
	return c, nil
}

func newContent(name string, open SourceFactory, position timeline.Time, gainDB float64) (*Content, error) {
	if math.IsNaN(gainDB) || math.Abs(gainDB) > audio.MaxGainDB {
		return nil, fmt.Errorf("gain out of range (±%.0f dB): %f", audio.MaxGainDB, gainDB)
	}
	if position < 0 {
		return nil, fmt.Errorf("negative position %v for %s", position, name)
	}

	src, err := open()
	if err != nil {
		return nil, err
	}
	info := src.Info()
	if err := src.Close(); err != nil {
		return nil, err
	}
	if err := limits.ValidateChannels(info.Channels); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if info.Channels > 0 {
		if err := limits.ValidateSampleRate(info.SampleRate); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "content.New",
		"name":        name,
		"position":    position.String(),
		"gain_db":     gainDB,
		"channels":    info.Channels,
		"sample_rate": info.SampleRate,
		"frames":      info.Frames,
	}).Info("Added audio content")

	return &Content{
		name:     name,
		open:     open,
		info:     info,
		position: position,
		gain:     gainDB,
	}, nil
}

// Name returns the path or name the content was created with.
func (c *Content) Name() string { return c.name }

// Info returns the native layout of the content's audio.
func (c *Content) Info() Info { return c.info }

// Position returns where the content starts on the timeline.
func (c *Content) Position() timeline.Time { return c.position }

// SetTrimStart skips the first t of the content's audio.
func (c *Content) SetTrimStart(t timeline.Time) {
	c.trim = min(max(t, 0), c.duration())
}

// TrimStart returns the amount skipped at the start of the content.
func (c *Content) TrimStart() timeline.Time { return c.trim }

// TrimFrames returns the trim in frames at the content's native rate.
func (c *Content) TrimFrames() int64 {
	if c.info.SampleRate == 0 {
		return 0
	}
	return c.trim.FramesRound(c.info.SampleRate)
}

func (c *Content) duration() timeline.Time {
	if c.info.SampleRate == 0 {
		return 0
	}
	return timeline.FromFrames(c.info.Frames, c.info.SampleRate)
}

// Length returns the playing length after trimming.
func (c *Content) Length() timeline.Time {
	return c.duration() - c.trim
}

// End returns where the content stops on the timeline.
func (c *Content) End() timeline.Time {
	return c.position + c.Length()
}

// OpenSource opens a fresh source for the content's audio.
func (c *Content) OpenSource() (Source, error) {
	return c.open()
}

// HasAudio implements interfaces.Content.
func (c *Content) HasAudio() bool {
	return c.info.Channels > 0 && c.Length() > 0
}

// Gain implements interfaces.Content.
func (c *Content) Gain() float64 { return c.gain }

// Digest implements interfaces.Content. The result is computed once.
func (c *Content) Digest() (string, error) {
	c.digestOnce.Do(func() {
		c.digest, c.digestErr = c.digestFunc()
	})
	return c.digest, c.digestErr
}

// FileDigest returns the hex BLAKE2b-256 hash of a file's bytes.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for digest: %w", filepath.Base(path), err)
	}
	defer f.Close()

	h, _ := blake2b.New256(nil) // only fails for oversized keys
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s for digest: %w", filepath.Base(path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SourceDigest returns the hex BLAKE2b-256 hash of a source's layout and
// decoded samples.
func SourceDigest(open SourceFactory) (string, error) {
	src, err := open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	h, _ := blake2b.New256(nil) // only fails for oversized keys
	info := src.Info()
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], uint64(info.Channels))
	h.Write(word[:])
	binary.LittleEndian.PutUint64(word[:], uint64(info.SampleRate))
	h.Write(word[:])

	for {
		buf, err := src.Read(limits.DefaultBlockFrames)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		for ch := 0; ch < buf.Channels(); ch++ {
			for _, s := range buf.Data(ch) {
				binary.LittleEndian.PutUint32(word[:4], math.Float32bits(s))
				h.Write(word[:4])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
