package content

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/audio"
)

// WAVSource decodes PCM WAV files.
type WAVSource struct {
	path    string
	file    *os.File
	decoder *wav.Decoder
	info    Info
	divisor float32
	pos     int64
}

// OpenWAV opens a WAV file for decoding.
func OpenWAV(path string) (*WAVSource, error) {
	s := &WAVSource{path: path}
	if err := s.open(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "OpenWAV",
		"path":        path,
		"channels":    s.info.Channels,
		"sample_rate": s.info.SampleRate,
		"bit_depth":   s.info.BitDepth,
		"frames":      s.info.Frames,
	}).Debug("Opened WAV source")

	return s, nil
}

func (s *WAVSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open WAV file: %w", err)
	}

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if !d.IsValidFile() {
		f.Close()
		return fmt.Errorf("%w: %s is not a PCM WAV file", ErrInvalidFile, s.path)
	}
	if err := d.FwdToPCM(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrInvalidFile, s.path, err)
	}

	divisor, err := sampleDivisor(int(d.BitDepth))
	if err != nil {
		f.Close()
		return err
	}

	channels := int(d.NumChans)
	frameBytes := int64(channels) * int64(d.BitDepth/8)
	s.file = f
	s.decoder = d
	s.divisor = divisor
	s.pos = 0
	s.info = Info{
		Channels:   channels,
		SampleRate: int(d.SampleRate),
		Frames:     d.PCMLen() / frameBytes,
		BitDepth:   int(d.BitDepth),
	}
	return nil
}

// Info implements Source.
func (s *WAVSource) Info() Info {
	return s.info
}

// Read implements Source.
func (s *WAVSource) Read(maxFrames int) (*audio.Buffers, error) {
	if s.decoder == nil {
		return nil, ErrClosed
	}
	remaining := s.info.Frames - s.pos
	if remaining <= 0 || maxFrames <= 0 {
		return nil, io.EOF
	}
	frames := int(min(int64(maxFrames), remaining))

	channels := s.info.Channels
	buf := &goaudio.IntBuffer{
		Data:   make([]int, frames*channels),
		Format: &goaudio.Format{SampleRate: s.info.SampleRate, NumChannels: channels},
	}
	n, err := s.decoder.PCMBuffer(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading WAV data: %w", err)
	}
	n -= n % channels
	if n == 0 {
		return nil, io.EOF
	}

	out := audio.NewBuffers(channels, n/channels)
	for i := 0; i < n; i++ {
		out.Data(i % channels)[i/channels] = float32(buf.Data[i]) / s.divisor
	}
	s.pos += int64(n / channels)
	return out, nil
}

// Seek implements Source. The decoder is reopened and the leading frames
// are decoded and discarded.
func (s *WAVSource) Seek(frame int64) error {
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
		chunk := int(min(frame-s.pos, 8192))
		if _, err := s.Read(chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("error seeking: %w", err)
		}
	}
	return nil
}

// Close implements Source.
func (s *WAVSource) Close() error {
	s.decoder = nil
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// WriteWAV encodes buf as PCM at the given bit depth. Samples are clipped to
// full scale.
func WriteWAV(w io.WriteSeeker, buf *audio.Buffers, sampleRate, bitDepth int) error {
	divisor, err := sampleDivisor(bitDepth)
	if err != nil {
		return err
	}

	channels := buf.Channels()
	data := make([]int, buf.Frames()*channels)
	maxValue := float64(divisor) - 1
	for ch := 0; ch < channels; ch++ {
		for i, s := range buf.Data(ch) {
			v := float64(s) * float64(divisor)
			v = min(max(v, -float64(divisor)), maxValue)
			data[i*channels+ch] = int(v)
		}
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, channels, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Data:   data,
		Format: &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
	}); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}
