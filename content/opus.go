package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audioanalysis/audio"
)

const (
	opusGranuleRate = 48000

	// pion/opus writes 20 ms of 16-bit mono audio upsampled three times
	// from the SILK rate, filling 1920 bytes whatever the bandwidth.
	opusOutputSize = 1920 * 2

	oggContinuedSegment = 255
	oggNoGranule        = ^uint64(0)
)

var opusTagsSignature = []byte("OpusTags")

// OpusSource decodes Ogg Opus files holding SILK-only, mono-coded 20 ms
// packets. Decoded audio runs at three times the SILK rate: 24 kHz for
// narrowband, 36 kHz for mediumband and 48 kHz for wideband.
type OpusSource struct {
	path            string
	stream          *opusStream
	decoder         opus.Decoder
	info            Info
	preSkip         int
	skip            int
	framesPerPacket int
	queue           blockQueue
	pos             int64
	eof             bool
	scratch         []byte
}

// OpenOpus opens an Ogg Opus file for decoding. The whole file is scanned once
// to find its length and check that every packet can be decoded.
func OpenOpus(path string) (*OpusSource, error) {
	s := &OpusSource{path: path}
	if err := s.scan(); err != nil {
		return nil, err
	}
	if err := s.open(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "OpenOpus",
		"path":        path,
		"channels":    s.info.Channels,
		"sample_rate": s.info.SampleRate,
		"frames":      s.info.Frames,
		"pre_skip":    s.preSkip,
	}).Debug("Opened Opus source")

	return s, nil
}

// scan walks every packet to fix the output rate, the pre-skip and the
// length given by the final granule position.
func (s *OpusSource) scan() error {
	st, err := openOpusStream(s.path)
	if err != nil {
		return err
	}
	defer st.close()

	silk := 0
	var packets int64
	for {
		packet, err := st.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		rate, err := silkRate(packet)
		if err != nil {
			return fmt.Errorf("%s: packet %d: %w", s.path, packets, err)
		}
		if silk != 0 && rate != silk {
			return fmt.Errorf("%w: %s: Opus bandwidth changes from %d Hz to %d Hz",
				ErrUnsupportedFormat, s.path, silk, rate)
		}
		silk = rate
		packets++
	}

	rate := opusGranuleRate
	if silk != 0 {
		rate = 3 * silk
	}
	// Every accepted packet carries 20 ms, 960 samples at the granule rate
	if st.granule > uint64(packets)*960 {
		return fmt.Errorf("%w: %s: granule position %d is past the %d decoded samples",
			ErrInvalidFile, s.path, st.granule, packets*960)
	}

	total := max(int64(st.granule)-int64(st.header.PreSkip), 0)
	s.preSkip = int(int64(st.header.PreSkip) * int64(rate) / opusGranuleRate)
	s.framesPerPacket = rate / 50
	s.info = Info{
		Channels:   int(st.header.Channels),
		SampleRate: rate,
		Frames:     total * int64(rate) / opusGranuleRate,
		BitDepth:   16,
	}
	return nil
}

func (s *OpusSource) open() error {
	st, err := openOpusStream(s.path)
	if err != nil {
		return err
	}

	s.stream = st
	s.decoder = opus.NewDecoder()
	s.queue.reset()
	s.skip = s.preSkip
	s.pos = 0
	s.eof = false
	return nil
}

// Info implements Source.
func (s *OpusSource) Info() Info {
	return s.info
}

// Read implements Source. Pre-skip samples are dropped and decoding stops at
// the length given by the final granule position.
func (s *OpusSource) Read(maxFrames int) (*audio.Buffers, error) {
	if s.stream == nil {
		return nil, ErrClosed
	}
	maxFrames = int(min(int64(maxFrames), s.info.Frames-s.pos))
	if maxFrames <= 0 {
		return nil, io.EOF
	}

	for s.queue.frames() < maxFrames && !s.eof {
		packet, err := s.stream.next()
		if errors.Is(err, io.EOF) {
			s.eof = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading Opus packet: %w", err)
		}
		block, err := s.decode(packet)
		if err != nil {
			return nil, err
		}
		if s.skip > 0 {
			n := min(s.skip, block.Frames())
			s.skip -= n
			if err := block.TrimStart(n); err != nil {
				return nil, err
			}
			if block.Frames() == 0 {
				continue
			}
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

func (s *OpusSource) decode(packet []byte) (*audio.Buffers, error) {
	if s.scratch == nil {
		s.scratch = make([]byte, opusOutputSize)
	}

	bandwidth, isStereo, err := s.decoder.Decode(packet, s.scratch)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}
	if isStereo || 3*bandwidth.SampleRate() != s.info.SampleRate {
		return nil, fmt.Errorf("%w: Opus packet decoded as %s stereo=%t in a %d Hz stream",
			ErrUnsupportedFormat, bandwidth.String(), isStereo, s.info.SampleRate)
	}

	block, err := decodeLE(s.scratch[:s.framesPerPacket*2], 16, 1)
	if err != nil {
		return nil, err
	}
	if s.info.Channels == 1 {
		return block, nil
	}
	// A mono-coded packet in a stereo stream is the same signal on both sides
	stereo := audio.NewBuffers(s.info.Channels, block.Frames())
	for ch := 0; ch < s.info.Channels; ch++ {
		copy(stereo.Data(ch), block.Data(0))
	}
	return stereo, nil
}

// Seek implements Source. The stream is reopened and the leading frames
// are decoded and discarded.
func (s *OpusSource) Seek(frame int64) error {
	if s.stream == nil {
		return ErrClosed
	}
	if frame < s.pos {
		if err := s.stream.close(); err != nil {
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
func (s *OpusSource) Close() error {
	s.queue.reset()
	if s.stream == nil {
		return nil
	}
	err := s.stream.close()
	s.stream = nil
	return err
}

// opusStream yields the audio packets of an Ogg Opus file in order.
type opusStream struct {
	file    *os.File
	reader  *oggreader.OggReader
	header  *oggreader.OggHeader
	packets oggPackets
	pending [][]byte
	granule uint64
	tags    bool
}

func openOpusStream(path string) (*opusStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}
	reader, header, err := oggreader.NewWith(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFile, path, err)
	}
	if header.ChannelMap != 0 || header.Channels == 0 || header.Channels > 2 {
		f.Close()
		return nil, fmt.Errorf("%w: Opus channel mapping %d with %d channels",
			ErrUnsupportedFormat, header.ChannelMap, header.Channels)
	}
	return &opusStream{file: f, reader: reader, header: header}, nil
}

// next returns the next audio packet, or io.EOF after the last complete one.
func (st *opusStream) next() ([]byte, error) {
	for {
		for len(st.pending) > 0 {
			packet := st.pending[0]
			st.pending = st.pending[1:]
			if !st.tags {
				if !bytes.HasPrefix(packet, opusTagsSignature) {
					return nil, fmt.Errorf("%w: missing OpusTags header", ErrInvalidFile)
				}
				st.tags = true
				continue
			}
			if len(packet) > 0 {
				return packet, nil
			}
		}

		segments, page, err := st.reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
		if page.GranulePosition != oggNoGranule {
			st.granule = page.GranulePosition
		}
		st.pending = append(st.pending, st.packets.add(segments)...)
	}
}

func (st *opusStream) close() error {
	return st.file.Close()
}

// oggPackets joins Ogg lacing segments into packets. A 255-byte segment
// continues into the next one, which may start the next page.
type oggPackets struct {
	partial []byte
}

func (p *oggPackets) add(segments [][]byte) [][]byte {
	var packets [][]byte
	for _, seg := range segments {
		p.partial = append(p.partial, seg...)
		if len(seg) < oggContinuedSegment {
			packets = append(packets, p.partial)
			p.partial = nil
		}
	}
	return packets
}

// silkRate returns the SILK rate of a single-frame, mono-coded 20 ms SILK
// packet, read from its table-of-contents byte. Other layouts are rejected
// as pion/opus cannot decode them.
func silkRate(packet []byte) (int, error) {
	if len(packet) == 0 {
		return 0, fmt.Errorf("%w: empty Opus packet", ErrInvalidFile)
	}
	toc := packet[0]
	if toc&0x4 != 0 {
		return 0, fmt.Errorf("%w: stereo-coded Opus packet", ErrUnsupportedFormat)
	}
	if toc&0x3 != 0 {
		return 0, fmt.Errorf("%w: Opus packet with frame count code %d", ErrUnsupportedFormat, toc&0x3)
	}
	switch config := toc >> 3; config {
	case 1:
		return 8000, nil
	case 5:
		return 12000, nil
	case 9:
		return 16000, nil
	default:
		return 0, fmt.Errorf("%w: Opus configuration %d is not 20 ms SILK", ErrUnsupportedFormat, config)
	}
}
