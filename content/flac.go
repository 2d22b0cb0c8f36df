package content

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tphakala/flac"

	"github.com/opd-ai/audioanalysis/audio"
)

// FLACSource decodes FLAC files.
type FLACSource struct {
	path    string
	file    *os.File
	decoder *flac.Decoder
	info    Info
	queue   blockQueue
	pos     int64
	eof     bool
}

// OpenFLAC opens a FLAC file for decoding.
func OpenFLAC(path string) (*FLACSource, error) {
	s := &FLACSource{path: path}
	if err := s.open(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "OpenFLAC",
		"path":        path,
		"channels":    s.info.Channels,
		"sample_rate": s.info.SampleRate,
		"bit_depth":   s.info.BitDepth,
		"frames":      s.info.Frames,
	}).Debug("Opened FLAC source")

	return s, nil
}

func (s *FLACSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open FLAC file: %w", err)
	}

	d, err := flac.NewDecoder(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: failed to create FLAC decoder: %w", ErrInvalidFile, err)
	}
	if _, err := sampleDivisor(d.BitsPerSample); err != nil {
		f.Close()
		return err
	}

	s.file = f
	s.decoder = d
	s.queue.reset()
	s.pos = 0
	s.eof = false
	s.info = Info{
		Channels:   d.NChannels,
		SampleRate: d.SampleRate,
		Frames:     int64(d.TotalSamples),
		BitDepth:   d.BitsPerSample,
	}
	return nil
}

// Info implements Source.
func (s *FLACSource) Info() Info {
	return s.info
}

// Read implements Source.
func (s *FLACSource) Read(maxFrames int) (*audio.Buffers, error) {
	if s.decoder == nil {
		return nil, ErrClosed
	}
	if maxFrames <= 0 {
		return nil, io.EOF
	}

	for s.queue.frames() < maxFrames && !s.eof {
		frame, err := s.decoder.Next()
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading FLAC frame: %w", err)
		}
		block, err := decodeLE(frame, s.info.BitDepth, s.info.Channels)
		if err != nil {
			return nil, err
		}
		if err := s.queue.push(block); err != nil {
			return nil, err
		}
	}

	out := s.queue.pop(maxFrames)
	if out == nil || out.Frames() == 0 {
		return nil, io.EOF
	}
	s.pos += int64(out.Frames())
	return out, nil
}

// Seek implements Source. The decoder is reopened and the leading frames
// are decoded and discarded.
func (s *FLACSource) Seek(frame int64) error {
	if s.decoder == nil {
		return ErrClosed
	}
	if frame < s.pos {
		if err := s.file.Close(); err != nil {
			return err
		}
		if err := s.open(); err != nil {
			return err
		}
	}
	for s.pos < frame {
		if _, err := s.Read(int(min(frame-s.pos, 8192))); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("error seeking: %w", err)
		}
	}
	return nil
}

// Close implements Source.
func (s *FLACSource) Close() error {
	s.decoder = nil
	s.queue.reset()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
