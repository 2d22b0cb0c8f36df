package player

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/interfaces"
	"github.com/opd-ai/audioanalysis/merger"
	"github.com/opd-ai/audioanalysis/timeline"
)

// Player plays a Playlist. It implements interfaces.AudioDriver and is not
// safe for concurrent use.
type Player struct {
	playlist    *Playlist
	channels    int
	rate        int
	blockFrames int

	handler interfaces.AudioHandler
	merger  *merger.Merger
	streams []*stream

	emitted  int64 // first frame not yet handed to the handler
	endFrame int64 // frame after the last one to emit
	flushEnd int64 // frame after the last one any stream can push
	seeked   bool
	finished bool
}

// New creates a player for playlist decoding blockFrames playlist frames per
// stream per pass.
func New(playlist *Playlist, blockFrames int) (*Player, error) {
	cfg := interfaces.DriverConfig{
		Channels:    playlist.AudioChannels(),
		FrameRate:   playlist.AudioFrameRate(),
		BlockFrames: blockFrames,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":     "player.New",
		"channels":     cfg.Channels,
		"rate":         cfg.FrameRate,
		"block_frames": cfg.BlockFrames,
	}).Debug("Creating player")

	return &Player{
		playlist:    playlist,
		channels:    cfg.Channels,
		rate:        cfg.FrameRate,
		blockFrames: cfg.BlockFrames,
		merger:      merger.NewMerger(cfg.FrameRate),
	}, nil
}

// SetAudioHandler implements interfaces.AudioDriver.
func (p *Player) SetAudioHandler(h interfaces.AudioHandler) {
	p.handler = h
}

// Seek implements interfaces.AudioDriver. Playback resumes at the first frame
// at or after t.
func (p *Player) Seek(t timeline.Time) error {
	p.Close()

	from := max(t, 0).FramesCeil(p.rate)
	p.merger.Reset(timeline.FromFrames(from, p.rate))
	p.emitted = from
	p.endFrame = p.playlist.Length().FramesRound(p.rate)
	p.flushEnd = p.endFrame

	if p.channels > 0 {
		for _, c := range p.playlist.Items() {
			s, err := openStream(c, from, p.channels, p.rate)
			if err != nil {
				p.Close()
				return err
			}
			if s == nil {
				continue
			}
			p.streams = append(p.streams, s)
			p.flushEnd = max(p.flushEnd, s.end)
		}
	}

	p.seeked = true
	p.finished = from >= p.endFrame

	logrus.WithFields(logrus.Fields{
		"function": "Player.Seek",
		"time":     t.String(),
		"frame":    from,
		"end":      p.endFrame,
		"streams":  len(p.streams),
	}).Info("Player positioned")

	return nil
}

// Pass implements interfaces.AudioDriver. Each pass decodes one block from
// the stream furthest behind and emits everything before the position the
// slowest remaining stream has reached.
func (p *Player) Pass() (bool, error) {
	if !p.seeked {
		return false, ErrNotSeeked
	}
	if p.handler == nil {
		return false, ErrNoHandler
	}
	if p.finished {
		return true, nil
	}

	if s := p.earliest(); s != nil {
		buf, err := s.read(p.blockFrames)
		if err != nil {
			return false, err
		}
		if buf != nil && buf.Frames() > 0 {
			if err := p.merger.Push(buf, timeline.FromFrames(s.next, p.rate)); err != nil {
				return false, err
			}
			s.next += int64(buf.Frames())
		}
	}

	if s := p.earliest(); s != nil {
		limit := timeline.FromFrames(s.next, p.rate)
		if err := p.emit(p.merger.Pull(limit), limit.FramesFloor(p.rate)); err != nil {
			return false, err
		}
		return false, nil
	}

	// Every stream has ended: flush what is pending and pad to the end.
	blocks := p.merger.Pull(timeline.FromFrames(p.flushEnd+1, p.rate))
	if err := p.emit(blocks, p.endFrame); err != nil {
		return false, err
	}
	p.finished = true
	p.Close()

	logrus.WithFields(logrus.Fields{
		"function": "Player.Pass",
		"frames":   p.emitted,
	}).Info("Playback finished")

	return true, nil
}

// Close releases every open content source. The player can be used again
// after a Seek.
func (p *Player) Close() {
	for _, s := range p.streams {
		s.finish()
	}
	p.streams = nil
}

func (p *Player) earliest() *stream {
	var out *stream
	for _, s := range p.streams {
		if !s.done && (out == nil || s.next < out.next) {
			out = s
		}
	}
	return out
}

// emit hands blocks to the handler, filling every gap before them and up to
// frame upTo with silence. Nothing at or after the end of the playlist is
// emitted.
func (p *Player) emit(blocks []merger.Block, upTo int64) error {
	for _, b := range blocks {
		if b.Frame >= p.endFrame {
			break
		}
		if err := p.silence(b.Frame); err != nil {
			return err
		}
		buf := b.Audio
		if remaining := p.endFrame - b.Frame; int64(buf.Frames()) > remaining {
			buf.SetFrames(int(remaining))
		}
		if err := p.deliver(buf, b.Frame); err != nil {
			return err
		}
	}
	return p.silence(min(upTo, p.endFrame))
}

func (p *Player) silence(to int64) error {
	for p.emitted < to {
		n := int(min(to-p.emitted, int64(p.blockFrames)))
		if err := p.deliver(audio.NewBuffers(p.channels, n), p.emitted); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) deliver(buf *audio.Buffers, frame int64) error {
	if err := p.handler.HandleAudio(buf, timeline.FromFrames(frame, p.rate)); err != nil {
		return fmt.Errorf("audio handler at frame %d: %w", frame, err)
	}
	p.emitted = frame + int64(buf.Frames())
	return nil
}
