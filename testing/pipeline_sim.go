package testing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/analysis"
	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/interfaces"
	"github.com/opd-ai/audioanalysis/timeline"
)

// ErrNoHandler indicates a pass was attempted before a handler was set.
var ErrNoHandler = errors.New("no audio handler set")

// Block is a piece of audio emitted by a SimulatedDriver.
type Block struct {
	Audio *audio.Buffers
	Time  timeline.Time
}

// SplitSignal cuts signal into consecutive blocks of at most blockFrames
// frames, the first starting at start.
func SplitSignal(signal *audio.Buffers, start timeline.Time, rate, blockFrames int) []Block {
	var blocks []Block
	for offset := 0; offset < signal.Frames(); offset += blockFrames {
		end := min(offset+blockFrames, signal.Frames())
		// offset < end <= Frames, so the slice is in range
		part, _ := signal.Slice(offset, end)
		blocks = append(blocks, Block{
			Audio: part,
			Time:  start + timeline.FromFrames(int64(offset), rate),
		})
	}
	return blocks
}

// EmissionRecord is a block delivered to the handler, for test verification.
type EmissionRecord struct {
	Time   timeline.Time
	Frames int
	Error  error
}

// SimulatedDriver implements interfaces.AudioDriver over a fixed block list.
type SimulatedDriver struct {
	blocks  []Block
	handler interfaces.AudioHandler
	next    int

	failAt  int
	failErr error

	seeks       []timeline.Time
	passes      int
	emissionLog []EmissionRecord
	mu          sync.Mutex
}

// NewSimulatedDriver creates a driver that emits blocks in order, one per pass.
func NewSimulatedDriver(blocks []Block) *SimulatedDriver {
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedDriver",
		"blocks":   len(blocks),
	}).Debug("Creating simulated audio driver")

	return &SimulatedDriver{
		blocks:      blocks,
		failAt:      -1,
		emissionLog: make([]EmissionRecord, 0),
	}
}

// FailOnPass makes the pass with the given zero-based index return err.
func (d *SimulatedDriver) FailOnPass(pass int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAt = pass
	d.failErr = err
}

// SetAudioHandler implements interfaces.AudioDriver.
func (d *SimulatedDriver) SetAudioHandler(h interfaces.AudioHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// Seek implements interfaces.AudioDriver. Blocks starting before t are skipped.
func (d *SimulatedDriver) Seek(t timeline.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seeks = append(d.seeks, t)
	d.next = 0
	for d.next < len(d.blocks) && d.blocks[d.next].Time < t {
		d.next++
	}
	return nil
}

// Pass implements interfaces.AudioDriver.
func (d *SimulatedDriver) Pass() (bool, error) {
	d.mu.Lock()
	pass := d.passes
	d.passes++
	if pass == d.failAt {
		err := d.failErr
		d.mu.Unlock()
		return false, err
	}
	if d.next >= len(d.blocks) {
		d.mu.Unlock()
		return true, nil
	}
	if d.handler == nil {
		d.mu.Unlock()
		return false, ErrNoHandler
	}
	b := d.blocks[d.next]
	d.next++
	h := d.handler
	d.mu.Unlock()

	err := h.HandleAudio(b.Audio, b.Time)

	d.mu.Lock()
	d.emissionLog = append(d.emissionLog, EmissionRecord{Time: b.Time, Frames: b.Audio.Frames(), Error: err})
	d.mu.Unlock()

	if err != nil {
		return false, fmt.Errorf("handler failed at %v: %w", b.Time, err)
	}
	return false, nil
}

// Seeks returns the positions passed to Seek.
func (d *SimulatedDriver) Seeks() []timeline.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]timeline.Time(nil), d.seeks...)
}

// Passes returns how many times Pass was called.
func (d *SimulatedDriver) Passes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passes
}

// GetEmissionLog returns a copy of the emission log.
func (d *SimulatedDriver) GetEmissionLog() []EmissionRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]EmissionRecord(nil), d.emissionLog...)
}

// SimulatedContent implements interfaces.Content from fixed values.
type SimulatedContent struct {
	Audio       bool
	GainDB      float64
	DigestValue string
	DigestErr   error
	Start       timeline.Time
	Trim        timeline.Time
}

// HasAudio implements interfaces.Content.
func (c *SimulatedContent) HasAudio() bool { return c.Audio }

// Gain implements interfaces.Content.
func (c *SimulatedContent) Gain() float64 { return c.GainDB }

// Digest implements interfaces.Content.
func (c *SimulatedContent) Digest() (string, error) {
	if c.DigestErr != nil {
		return "", c.DigestErr
	}
	return c.DigestValue, nil
}

// Position implements interfaces.Content.
func (c *SimulatedContent) Position() timeline.Time { return c.Start }

// TrimStart implements interfaces.Content.
func (c *SimulatedContent) TrimStart() timeline.Time { return c.Trim }

// SimulatedPlaylist implements interfaces.Playlist from fixed values.
type SimulatedPlaylist struct {
	content  []interfaces.Content
	start    timeline.Time
	hasStart bool
	length   timeline.Time
	channels int
	rate     int
}

// NewSimulatedPlaylist creates an empty playlist with the given layout.
func NewSimulatedPlaylist(channels, rate int, length timeline.Time) *SimulatedPlaylist {
	return &SimulatedPlaylist{channels: channels, rate: rate, length: length}
}

// AddContent appends an item.
func (p *SimulatedPlaylist) AddContent(c interfaces.Content) {
	p.content = append(p.content, c)
}

// SetStart sets the position of the earliest audio.
func (p *SimulatedPlaylist) SetStart(t timeline.Time) {
	p.start = t
	p.hasStart = true
}

// Content implements interfaces.Playlist.
func (p *SimulatedPlaylist) Content() []interfaces.Content { return p.content }

// Start implements interfaces.Playlist.
func (p *SimulatedPlaylist) Start() (timeline.Time, bool) { return p.start, p.hasStart }

// Length implements interfaces.Playlist.
func (p *SimulatedPlaylist) Length() timeline.Time { return p.length }

// AudioChannels implements interfaces.Playlist.
func (p *SimulatedPlaylist) AudioChannels() int { return p.channels }

// AudioFrameRate implements interfaces.Playlist.
func (p *SimulatedPlaylist) AudioFrameRate() int { return p.rate }

// SimulatedWriter implements interfaces.ArtifactWriter in memory.
type SimulatedWriter struct {
	// Err, if set, is returned by every Write
	Err error

	mu      sync.Mutex
	written map[string]*analysis.AudioAnalysis
}

// Write implements interfaces.ArtifactWriter.
func (w *SimulatedWriter) Write(a *analysis.AudioAnalysis, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	if w.written == nil {
		w.written = make(map[string]*analysis.AudioAnalysis)
	}
	w.written[path] = a
	return nil
}

// Written returns the analysis written to path, if any.
func (w *SimulatedWriter) Written(path string) (*analysis.AudioAnalysis, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.written[path]
	return a, ok
}

// Count returns the number of distinct paths written.
func (w *SimulatedWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}
