package player

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/content"
	"github.com/opd-ai/audioanalysis/interfaces"
	"github.com/opd-ai/audioanalysis/limits"
	"github.com/opd-ai/audioanalysis/timeline"
)

// Playlist is an ordered set of content mixed to a fixed channel count and
// frame rate. It implements interfaces.Playlist.
type Playlist struct {
	mu       sync.RWMutex
	items    []*content.Content
	channels int
	rate     int
	length   timeline.Time
}

// NewPlaylist creates an empty playlist mixing to channels at rate.
func NewPlaylist(channels, rate int) (*Playlist, error) {
	if err := limits.ValidateChannels(channels); err != nil {
		return nil, fmt.Errorf("invalid playlist: %w", err)
	}
	if err := limits.ValidateSampleRate(rate); err != nil {
		return nil, fmt.Errorf("invalid playlist: %w", err)
	}
	if !timeline.FrameAccurate(rate) {
		return nil, fmt.Errorf("%w: %d Hz", ErrFrameRate, rate)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewPlaylist",
		"channels": channels,
		"rate":     rate,
	}).Debug("Creating playlist")

	return &Playlist{channels: channels, rate: rate}, nil
}

// Add places c on the playlist. Items are kept in position order; items at
// the same position keep the order they were added in.
func (p *Playlist) Add(c *content.Content) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := sort.Search(len(p.items), func(i int) bool {
		return p.items[i].Position() > c.Position()
	})
	p.items = append(p.items, nil)
	copy(p.items[idx+1:], p.items[idx:])
	p.items[idx] = c
}

// SetLength extends the playlist to at least t, so that the output is padded
// with silence after the last content.
func (p *Playlist) SetLength(t timeline.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.length = max(t, 0)
}

// Items returns the content in position order.
func (p *Playlist) Items() []*content.Content {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*content.Content(nil), p.items...)
}

// Content implements interfaces.Playlist.
func (p *Playlist) Content() []interfaces.Content {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]interfaces.Content, len(p.items))
	for i, c := range p.items {
		out[i] = c
	}
	return out
}

// Start implements interfaces.Playlist.
func (p *Playlist) Start() (timeline.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	// Items are sorted by position, so the first one with audio is earliest.
	for _, c := range p.items {
		if c.HasAudio() {
			return c.Position(), true
		}
	}
	return 0, false
}

// Length implements interfaces.Playlist.
func (p *Playlist) Length() timeline.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	length := p.length
	for _, c := range p.items {
		length = max(length, c.End())
	}
	return length
}

// AudioChannels implements interfaces.Playlist.
func (p *Playlist) AudioChannels() int { return p.channels }

// AudioFrameRate implements interfaces.Playlist.
func (p *Playlist) AudioFrameRate() int { return p.rate }
