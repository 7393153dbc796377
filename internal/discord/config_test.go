package discord

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FFmpegBitrate != 96 || cfg.CompressionLevel != 3 || cfg.DefaultVolume != 100 {
		t.Errorf("audio defaults = %+v", cfg)
	}
	if cfg.ReconnectTimeout != 5*time.Second || cfg.IdleTimeout != 5*time.Minute || cfg.CommandCooldown != 3*time.Second {
		t.Errorf("timing defaults = %v %v %v", cfg.ReconnectTimeout, cfg.IdleTimeout, cfg.CommandCooldown)
	}
	if cfg.SubsonicEnabled() {
		t.Error("subsonic enabled without credentials")
	}
}

func TestParseRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := parse(); err == nil {
		t.Fatal("expected error without DISCORD_TOKEN")
	}
}

func TestParseRejectsBadSubsonicURL(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	for _, u := range []string{"ftp://music.example.com", "not a url"} {
		t.Setenv("SUBSONIC_URL", u)
		if _, err := parse(); err == nil {
			t.Errorf("SUBSONIC_URL %q accepted", u)
		}
	}
}

func TestParseClampsOutOfRange(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMPRESSION_LEVEL", "11")
	t.Setenv("DEFAULT_VOLUME", "300")
	t.Setenv("FFMPEG_BITRATE", "0")

	cfg, err := parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CompressionLevel != 3 || cfg.DefaultVolume != 100 || cfg.FFmpegBitrate != 96 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseSubsonic(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("SUBSONIC_URL", "https://music.example.com")
	t.Setenv("SUBSONIC_USER", "alice")
	t.Setenv("SUBSONIC_PASSWORD", "secret")
	t.Setenv("IDLE_TIMEOUT", "90s")

	cfg, err := parse()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.SubsonicEnabled() {
		t.Error("subsonic not enabled")
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v", cfg.IdleTimeout)
	}
}
