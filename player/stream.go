package player

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/audio"
	"github.com/opd-ai/audioanalysis/content"
)

// stream decodes one content item into playlist-layout blocks. Positions are
// playlist frames.
type stream struct {
	content   *content.Content
	source    content.Source
	resampler *audio.Resampler // nil when the rates match
	effects   *audio.EffectChain
	channels  int
	srcRate   int
	rate      int
	next      int64 // first frame of the next block
	end       int64 // frame after the last one to emit
	done      bool
}

// openStream opens c for playback from playlist frame from. It returns nil
// when c ends at or before from.
func openStream(c *content.Content, from int64, channels, rate int) (*stream, error) {
	start := c.Position().FramesRound(rate)
	end := start + c.Length().FramesRound(rate)
	if end <= from || !c.HasAudio() {
		return nil, nil
	}

	info := c.Info()
	skip := max(from-start, 0)
	srcFrame := c.TrimFrames() + roundDiv(skip*int64(info.SampleRate), int64(rate))

	src, err := c.OpenSource()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Name(), err)
	}
	if err := src.Seek(srcFrame); err != nil {
		src.Close()
		return nil, fmt.Errorf("seek %s to frame %d: %w", c.Name(), srcFrame, err)
	}

	s := &stream{
		content:  c,
		source:   src,
		effects:  audio.NewEffectChain(),
		channels: channels,
		srcRate:  info.SampleRate,
		rate:     rate,
		next:     start + skip,
		end:      end,
	}

	if info.SampleRate != rate {
		s.resampler, err = audio.NewResampler(audio.ResamplerConfig{
			InputRate:  info.SampleRate,
			OutputRate: rate,
			Channels:   channels,
		})
		if err != nil {
			src.Close()
			return nil, err
		}
	}

	if c.Gain() != 0 {
		gain, err := audio.NewGainEffect(c.Gain())
		if err != nil {
			src.Close()
			return nil, err
		}
		s.effects.AddEffect(gain)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "openStream",
		"content":   c.Name(),
		"from":      s.next,
		"end":       s.end,
		"src_frame": srcFrame,
		"resample":  s.resampler != nil,
		"effects":   s.effects.Names(),
	}).Debug("Opened content stream")

	return s, nil
}

// read decodes about frames playlist frames. It returns nil once the stream
// has nothing more to give, after which done is set.
func (s *stream) read(frames int) (*audio.Buffers, error) {
	if s.done {
		return nil, nil
	}

	want := max(int(ceilDiv(int64(frames)*int64(s.srcRate), int64(s.rate))), 1)
	buf, err := s.source.Read(want)
	if errors.Is(err, io.EOF) {
		s.finish()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.content.Name(), err)
	}

	buf = buf.Remap(s.channels)
	if s.resampler != nil {
		if buf, err = s.resampler.Resample(buf); err != nil {
			return nil, fmt.Errorf("resample %s: %w", s.content.Name(), err)
		}
	}
	if err := s.effects.Process(buf); err != nil {
		return nil, fmt.Errorf("process %s: %w", s.content.Name(), err)
	}

	if remaining := s.end - s.next; int64(buf.Frames()) >= remaining {
		buf.SetFrames(int(remaining))
		s.finish()
	}
	return buf, nil
}

func (s *stream) finish() {
	if s.done {
		return
	}
	s.done = true
	if err := s.source.Close(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "stream.finish",
			"content":  s.content.Name(),
			"error":    err.Error(),
		}).Warn("Failed to close content source")
	}
}

func roundDiv(a, b int64) int64 {
	return (2*a + b) / (2 * b)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
