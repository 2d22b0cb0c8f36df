package content

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/opus"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/audioanalysis/audio"
)

// silkPacket is a 20 ms mono wideband SILK packet (TOC config 9, code 0).
func silkPacket(t *testing.T) []byte {
	t.Helper()
	p, err := hex.DecodeString("4883cade8ae567d51caca254faffbf")
	require.NoError(t, err)
	return p
}

func repeatPacket(p []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// referenceDecode decodes packets one at a time with a fresh decoder and
// trims the result to [skip, skip+frames).
func referenceDecode(t *testing.T, packets [][]byte, skip, frames int) *audio.Buffers {
	t.Helper()
	decoder := opus.NewDecoder()
	out := audio.NewBuffers(1, 0)
	for _, p := range packets {
		buf := make([]byte, opusOutputSize)
		bandwidth, _, err := decoder.Decode(p, buf)
		require.NoError(t, err)
		block, err := decodeLE(buf[:bandwidth.SampleRate()*3/50*2], 16, 1)
		require.NoError(t, err)
		require.NoError(t, out.Append(block))
	}
	require.NoError(t, out.TrimStart(skip))
	out.SetFrames(frames)
	return out
}

// writeOggOpusPages writes one packet per page, the layout of real-time
// recorders.
func writeOggOpusPages(t *testing.T, path string, packets [][]byte) {
	t.Helper()
	w, err := oggwriter.New(path, opusGranuleRate, 1)
	require.NoError(t, err)
	for i, p := range packets {
		require.NoError(t, w.WriteRTP(&rtp.Packet{
			Header:  rtp.Header{Timestamp: uint32(1000 + i*960)},
			Payload: p,
		}))
	}
	require.NoError(t, w.Close())
}

var oggCRCTable = func() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

// oggPage builds a page holding the given packets. When continued is set the
// last packet, whose length must be a multiple of 255, carries on into the
// next page.
func oggPage(headerType byte, granule uint64, index uint32, continued bool, packets ...[]byte) []byte {
	var lacing, body []byte
	for i, p := range packets {
		n := len(p)
		for n >= 255 {
			lacing = append(lacing, 255)
			n -= 255
		}
		if !continued || i < len(packets)-1 {
			lacing = append(lacing, byte(n))
		}
		body = append(body, p...)
	}

	page := make([]byte, 27, 27+len(lacing)+len(body))
	copy(page, "OggS")
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:], granule)
	binary.LittleEndian.PutUint32(page[14:], 0x5eed)
	binary.LittleEndian.PutUint32(page[18:], index)
	page[26] = byte(len(lacing))
	page = append(page, lacing...)
	page = append(page, body...)

	var crc uint32
	for _, b := range page {
		crc = crc<<8 ^ oggCRCTable[byte(crc>>24)^b]
	}
	binary.LittleEndian.PutUint32(page[22:], crc)
	return page
}

func opusHead(channels byte, preSkip uint16) []byte {
	head := make([]byte, 19)
	copy(head, "OpusHead")
	head[8] = 1
	head[9] = channels
	binary.LittleEndian.PutUint16(head[10:], preSkip)
	binary.LittleEndian.PutUint32(head[12:], opusGranuleRate)
	return head
}

func opusTags() []byte {
	return append([]byte("OpusTags\x04\x00\x00\x00test"), 0, 0, 0, 0)
}

func writeFile(t *testing.T, path string, pages ...[]byte) {
	t.Helper()
	var data []byte
	for _, p := range pages {
		data = append(data, p...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestOpusSinglePacketPages(t *testing.T) {
	packets := repeatPacket(silkPacket(t), 12)
	path := filepath.Join(t.TempDir(), "rtc.opus")
	writeOggOpusPages(t, path, packets)

	src, err := OpenOpus(path)
	require.NoError(t, err)
	defer src.Close()

	// Granule starts at 1 and lags the final packet; pre-skip is 3840
	const frames = 1 + 11*960 - 3840
	assert.Equal(t, Info{Channels: 1, SampleRate: 48000, Frames: frames, BitDepth: 16}, src.Info())

	got := readAll(t, src, 1000)
	want := referenceDecode(t, packets, 3840, frames)
	require.Equal(t, frames, got.Frames())
	assert.Equal(t, want.Data(0), got.Data(0))
}

func TestOpusMultiPacketPages(t *testing.T) {
	packet := silkPacket(t)
	packets := repeatPacket(packet, 12)
	const preSkip = 312
	const trimmed = 100
	path := filepath.Join(t.TempDir(), "file.opus")
	writeFile(t, path,
		oggPage(2, 0, 0, false, opusHead(2, preSkip)),
		oggPage(0, 0, 1, false, opusTags()),
		oggPage(0, 5*960, 2, false, packets[:5]...),
		oggPage(4, 12*960-trimmed, 3, false, packets[5:]...),
	)

	src, err := OpenOpus(path)
	require.NoError(t, err)
	defer src.Close()

	const frames = 12*960 - trimmed - preSkip
	assert.Equal(t, Info{Channels: 2, SampleRate: 48000, Frames: frames, BitDepth: 16}, src.Info())

	want := referenceDecode(t, packets, preSkip, frames)
	got := readAll(t, src, 777)
	require.Equal(t, frames, got.Frames())
	assert.Equal(t, want.Data(0), got.Data(0))
	assert.Equal(t, want.Data(0), got.Data(1))

	t.Run("seek", func(t *testing.T) {
		require.NoError(t, src.Seek(5000))
		b, err := src.Read(500)
		require.NoError(t, err)
		assert.Equal(t, want.Data(0)[5000:5500], b.Data(0))

		// Backwards reopens the stream and decodes from the first packet
		require.NoError(t, src.Seek(100))
		b, err = src.Read(50)
		require.NoError(t, err)
		assert.Equal(t, want.Data(0)[100:150], b.Data(0))
	})
}

func TestOpusPacketAcrossPages(t *testing.T) {
	packet := silkPacket(t)
	// Trailing bytes after the range-coded frame are ignored by the decoder
	padded := append(append([]byte{}, packet...), make([]byte, 300)...)
	path := filepath.Join(t.TempDir(), "split.opus")
	writeFile(t, path,
		oggPage(2, 0, 0, false, opusHead(1, 0)),
		oggPage(0, 0, 1, false, opusTags()),
		oggPage(0, oggNoGranule, 2, true, packet, padded[:255]),
		oggPage(5, 2*960, 3, false, padded[255:]),
	)

	src, err := OpenOpus(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, int64(2*960), src.Info().Frames)
	got := readAll(t, src, 4096)
	want := referenceDecode(t, [][]byte{packet, padded}, 0, 2*960)
	assert.Equal(t, want.Data(0), got.Data(0))
}

func TestOpusRejectsUndecodableStreams(t *testing.T) {
	packet := silkPacket(t)
	celt := append([]byte{31 << 3}, packet[1:]...)
	stereo := append([]byte{packet[0] | 0x4}, packet[1:]...)
	narrow := append([]byte{1 << 3}, packet[1:]...)

	tests := []struct {
		name    string
		granule uint64
		packets [][]byte
		want    error
	}{
		{"CELT packet", 960, [][]byte{celt}, ErrUnsupportedFormat},
		{"stereo-coded packet", 960, [][]byte{stereo}, ErrUnsupportedFormat},
		{"bandwidth change", 2 * 960, [][]byte{packet, narrow}, ErrUnsupportedFormat},
		{"granule past decoded audio", 3 * 960, [][]byte{packet, packet}, ErrInvalidFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.opus")
			writeFile(t, path,
				oggPage(2, 0, 0, false, opusHead(1, 0)),
				oggPage(0, 0, 1, false, opusTags()),
				oggPage(4, tt.granule, 2, false, tt.packets...),
			)
			_, err := OpenOpus(path)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("missing tags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notags.opus")
		writeFile(t, path,
			oggPage(2, 0, 0, false, opusHead(1, 0)),
			oggPage(4, 960, 1, false, packet),
		)
		_, err := OpenOpus(path)
		assert.ErrorIs(t, err, ErrInvalidFile)
	})
}

func TestOggPackets(t *testing.T) {
	long := make([]byte, 300)
	var p oggPackets

	got := p.add([][]byte{long[:255], long[255:], {1, 2}})
	require.Len(t, got, 2)
	assert.Len(t, got[0], 300)
	assert.Equal(t, []byte{1, 2}, got[1])

	// A page ending on a full segment carries the packet into the next page
	assert.Empty(t, p.add([][]byte{long[:255]}))
	got = p.add([][]byte{{}})
	require.Len(t, got, 1)
	assert.Len(t, got[0], 255)
}

func TestSilkRate(t *testing.T) {
	tests := []struct {
		name   string
		packet []byte
		want   int
		err    error
	}{
		{"narrowband 20ms", []byte{1 << 3}, 8000, nil},
		{"mediumband 20ms", []byte{5 << 3}, 12000, nil},
		{"wideband 20ms", []byte{9 << 3}, 16000, nil},
		{"wideband 10ms", []byte{8 << 3}, 0, ErrUnsupportedFormat},
		{"two frames", []byte{9<<3 | 1}, 0, ErrUnsupportedFormat},
		{"stereo", []byte{9<<3 | 4}, 0, ErrUnsupportedFormat},
		{"hybrid", []byte{13 << 3}, 0, ErrUnsupportedFormat},
		{"empty", nil, 0, ErrInvalidFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := silkRate(tt.packet)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
