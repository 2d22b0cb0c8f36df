package content

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opd-ai/audioanalysis/audio"
)

var (
	// ErrUnsupportedFormat indicates a file type no decoder handles.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidFile indicates a file whose contents could not be parsed.
	ErrInvalidFile = errors.New("invalid audio file")

	// ErrClosed indicates use of a closed source.
	ErrClosed = errors.New("source closed")
)

// Info describes a source's native layout.
type Info struct {
	Channels   int
	SampleRate int
	Frames     int64
	BitDepth   int
}

// Source decodes audio sequentially.
type Source interface {
	// Info returns the layout of the decoded audio
	Info() Info

	// Read returns up to maxFrames frames, or io.EOF once no frames remain
	Read(maxFrames int) (*audio.Buffers, error)

	// Seek positions the next Read at frame
	Seek(frame int64) error

	// Close releases the source
	Close() error
}

// SourceFactory opens a fresh source positioned at frame zero.
type SourceFactory func() (Source, error)

// Open opens path with the decoder matching its extension.
func Open(path string) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".flac":
		return OpenFLAC(path)
	case ".opus", ".ogg":
		return OpenOpus(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// sampleDivisor returns the full-scale value of signed PCM at bitDepth.
func sampleDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, bitDepth)
	}
}

// decodeLE converts interleaved little-endian signed PCM to buffers.
func decodeLE(data []byte, bitDepth, channels int) (*audio.Buffers, error) {
	divisor, err := sampleDivisor(bitDepth)
	if err != nil {
		return nil, err
	}
	width := bitDepth / 8
	stride := width * channels
	if channels <= 0 || len(data)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes not aligned to %d-byte frames", ErrInvalidFile, len(data), stride)
	}

	frames := len(data) / stride
	b := audio.NewBuffers(channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := i*stride + ch*width
			var sample int32
			switch bitDepth {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(data[off:])))
			case 24:
				sample = int32(data[off]) | int32(data[off+1])<<8 | int32(data[off+2])<<16
				if sample&0x800000 != 0 {
					sample |= -1 << 24
				}
			case 32:
				sample = int32(binary.LittleEndian.Uint32(data[off:]))
			}
			b.Data(ch)[i] = float32(sample) / divisor
		}
	}
	return b, nil
}

// blockQueue holds decoded audio not yet returned by Read.
type blockQueue struct {
	pending *audio.Buffers
}

func (q *blockQueue) push(b *audio.Buffers) error {
	if q.pending == nil {
		q.pending = b
		return nil
	}
	return q.pending.Append(b)
}

func (q *blockQueue) frames() int {
	if q.pending == nil {
		return 0
	}
	return q.pending.Frames()
}

// pop removes and returns up to n frames.
func (q *blockQueue) pop(n int) *audio.Buffers {
	if q.pending == nil {
		return nil
	}
	if n >= q.pending.Frames() {
		out := q.pending
		q.pending = nil
		return out
	}
	// 0 < n < Frames, so neither call can fail
	out, _ := q.pending.Slice(0, n)
	_ = q.pending.TrimStart(n)
	return out
}

func (q *blockQueue) reset() {
	q.pending = nil
}
