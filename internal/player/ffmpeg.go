package player

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeOptions controls the ffmpeg processes behind every stream.
type EncodeOptions struct {
	FFmpegPath       string
	Bitrate          int // kbps
	CompressionLevel int // 0-10
}

// DefaultEncodeOptions matches the bot's defaults when nothing is configured.
var DefaultEncodeOptions = EncodeOptions{
	FFmpegPath:       "ffmpeg",
	Bitrate:          96,
	CompressionLevel: 3,
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.FFmpegPath == "" {
		o.FFmpegPath = DefaultEncodeOptions.FFmpegPath
	}
	if o.Bitrate <= 0 {
		o.Bitrate = DefaultEncodeOptions.Bitrate
	}
	if o.CompressionLevel < 0 || o.CompressionLevel > 10 {
		o.CompressionLevel = DefaultEncodeOptions.CompressionLevel
	}
	return o
}

// decodeArgs turns any input ffmpeg understands into 48kHz stereo s16le WAV on stdout.
func decodeArgs(input string) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	return append(args,
		"-i", input,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-f", "wav",
		"pipe:1",
	)
}

// encodeArgs reads raw PCM on stdin and writes Ogg/Opus with 20ms frames on stdout.
func encodeArgs(o EncodeOptions) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", "pipe:0",
		"-c:a", "libopus",
		"-b:a", fmt.Sprintf("%dk", o.Bitrate),
		"-vbr", "on",
		"-compression_level", strconv.Itoa(o.CompressionLevel),
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"pipe:1",
	}
}
