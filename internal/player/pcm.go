package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
)

const (
	sampleRate    = 48000
	channels      = 2
	bitsPerSample = 16
)

// PCMVolume wraps a reader of little-endian int16 PCM and scales every
// sample by a linear gain that can change while reading.
type PCMVolume struct {
	r        io.Reader
	mu       sync.Mutex
	volume   float64
	leftover []byte // odd trailing byte held back until its pair arrives
}

// NewPCMVolume returns a scaler at unity gain.
func NewPCMVolume(r io.Reader) *PCMVolume {
	return &PCMVolume{r: r, volume: 1.0}
}

// SetVolume sets the gain. 1.0 leaves samples untouched, 2.0 doubles them.
func (v *PCMVolume) SetVolume(vol float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = math.Max(0, vol)
}

// Volume returns the current gain.
func (v *PCMVolume) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

// Read implements io.Reader. It never returns half a sample.
func (v *PCMVolume) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	start := 0
	if len(v.leftover) > 0 {
		p[0] = v.leftover[0]
		v.leftover = nil
		start = 1
		if len(p) == 1 {
			return 1, nil
		}
	}

	read, err := v.r.Read(p[start:])
	n = start + read
	if n == 0 {
		return 0, err
	}

	if n%2 != 0 {
		if err != nil {
			// Source is done; a lone byte can never become a sample.
			n--
		} else {
			v.leftover = []byte{p[n-1]}
			n--
		}
	}

	vol := v.Volume()
	if math.Abs(vol-1.0) > 0.001 {
		scaleSamples(p[:n], vol)
	}
	return n, err
}

func scaleSamples(buf []byte, vol float64) {
	for i := 0; i+1 < len(buf); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buf[i : i+2]))
		scaled := float64(sample) * vol
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(buf[i:i+2], uint16(int16(scaled)))
	}
}

// WavHeader holds the fmt chunk fields of a RIFF WAVE stream.
type WavHeader struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// CheckDiscordPCM reports whether the stream is 48kHz stereo 16-bit, the
// only layout the encoder is told to expect.
func (h *WavHeader) CheckDiscordPCM() error {
	if h.SampleRate != sampleRate || h.NumChannels != channels || h.BitsPerSample != bitsPerSample {
		return fmt.Errorf("unexpected pcm layout: %d Hz, %d channels, %d bits",
			h.SampleRate, h.NumChannels, h.BitsPerSample)
	}
	return nil
}

// ReadWavHeader consumes a WAVE header up to the start of the data chunk.
// Unknown chunks are skipped. Streams written to a pipe may carry a bogus
// data size, so it is ignored.
func ReadWavHeader(r io.Reader) (*WavHeader, error) {
	riff := make([]byte, 12)
	if _, err := io.ReadFull(r, riff); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" {
		return nil, fmt.Errorf("invalid WAV: missing RIFF")
	}
	if string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV: missing WAVE")
	}

	h := &WavHeader{}
	foundFmt := false
	chunk := make([]byte, 8)

	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("invalid fmt chunk size: %d", size)
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			h.AudioFormat = binary.LittleEndian.Uint16(data[0:2])
			h.NumChannels = binary.LittleEndian.Uint16(data[2:4])
			h.SampleRate = binary.LittleEndian.Uint32(data[4:8])
			h.ByteRate = binary.LittleEndian.Uint32(data[8:12])
			h.BlockAlign = binary.LittleEndian.Uint16(data[12:14])
			h.BitsPerSample = binary.LittleEndian.Uint16(data[14:16])
			foundFmt = true
		case "data":
			if !foundFmt {
				return nil, fmt.Errorf("invalid WAV: data chunk before fmt chunk")
			}
			// 1 = PCM, 0xFFFE = WAVE_FORMAT_EXTENSIBLE
			if h.AudioFormat != 1 && h.AudioFormat != 0xFFFE {
				return nil, fmt.Errorf("unsupported WAV format: %d", h.AudioFormat)
			}
			return h, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return nil, fmt.Errorf("skip chunk %q: %w", id, err)
			}
		}

		if size%2 != 0 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return nil, fmt.Errorf("skip chunk padding: %w", err)
			}
		}
	}
}
