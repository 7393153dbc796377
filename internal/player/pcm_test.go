package player

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"
)

func samples(vals ...int16) []byte {
	buf := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

func decodeSamples(buf []byte) []int16 {
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return out
}

func TestPCMVolumeUnityPassesThrough(t *testing.T) {
	in := samples(100, -100, 32767, -32768)
	out, err := io.ReadAll(NewPCMVolume(bytes.NewReader(in)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("unity gain changed samples: %v", decodeSamples(out))
	}
}

func TestPCMVolumeScalesAndClips(t *testing.T) {
	v := NewPCMVolume(bytes.NewReader(samples(100, -100, 20000, -20000)))
	v.SetVolume(2.0)
	out, err := io.ReadAll(v)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{200, -200, 32767, -32768}
	got := decodeSamples(out)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCMVolumeNegativeIsSilence(t *testing.T) {
	v := NewPCMVolume(bytes.NewReader(samples(1000, -1000)))
	v.SetVolume(-1)
	if v.Volume() != 0 {
		t.Fatalf("volume = %v, want 0", v.Volume())
	}
	out, _ := io.ReadAll(v)
	for i, s := range decodeSamples(out) {
		if s != 0 {
			t.Errorf("sample %d = %d, want 0", i, s)
		}
	}
}

// oneByteReader hands out a single byte per Read so samples straddle reads.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestPCMVolumeKeepsSamplesWhole(t *testing.T) {
	v := NewPCMVolume(oneByteReader{bytes.NewReader(samples(300, -300, 7))})
	v.SetVolume(0.5)
	out, err := io.ReadAll(v)
	if err != nil {
		t.Fatal(err)
	}
	got := decodeSamples(out)
	want := []int16{150, -150, 3}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCMVolumeDropsTrailingHalfSample(t *testing.T) {
	in := append(samples(5), 0x01)
	out, err := io.ReadAll(NewPCMVolume(bytes.NewReader(in)))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("read %d bytes, want 2", len(out))
	}
}

func wavHeader(rate uint32, ch, bits uint16, extra ...[]byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(0xFFFFFFFF))
	b.WriteString("WAVE")
	for _, chunk := range extra {
		b.Write(chunk)
	}
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, ch)
	binary.Write(&b, binary.LittleEndian, rate)
	binary.Write(&b, binary.LittleEndian, rate*uint32(ch)*uint32(bits/8))
	binary.Write(&b, binary.LittleEndian, ch*bits/8)
	binary.Write(&b, binary.LittleEndian, bits)
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(0xFFFFFFFF))
	return b.Bytes()
}

func TestReadWavHeader(t *testing.T) {
	payload := samples(1, 2, 3, 4)
	r := bytes.NewReader(append(wavHeader(48000, 2, 16), payload...))

	h, err := ReadWavHeader(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.CheckDiscordPCM(); err != nil {
		t.Errorf("CheckDiscordPCM: %v", err)
	}
	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, payload) {
		t.Errorf("header read consumed payload bytes")
	}
}

func TestReadWavHeaderSkipsUnknownChunks(t *testing.T) {
	list := []byte("LIST\x03\x00\x00\x00abc\x00")
	h, err := ReadWavHeader(bytes.NewReader(wavHeader(48000, 2, 16, list)))
	if err != nil {
		t.Fatal(err)
	}
	if h.SampleRate != 48000 {
		t.Errorf("SampleRate = %d", h.SampleRate)
	}
}

func TestReadWavHeaderRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"short":    "RIF",
		"not riff": "RIFX\x00\x00\x00\x00WAVE",
		"not wave": "RIFF\x00\x00\x00\x00AVI ",
		"no fmt":   "RIFF\x00\x00\x00\x00WAVEdata\x00\x00\x00\x00",
	}
	for name, in := range cases {
		if _, err := ReadWavHeader(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCheckDiscordPCMRejectsOtherLayouts(t *testing.T) {
	h, err := ReadWavHeader(bytes.NewReader(wavHeader(44100, 2, 16)))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.CheckDiscordPCM(); err == nil {
		t.Error("44.1kHz accepted")
	}
}
