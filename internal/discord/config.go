package discord

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken     string `env:"DISCORD_TOKEN,required,notEmpty"`
	GuildID          string `env:"GUILD_ID"`
	SubsonicURL      string `env:"SUBSONIC_URL"`
	SubsonicUser     string `env:"SUBSONIC_USER"`
	SubsonicPassword string `env:"SUBSONIC_PASSWORD"`
	FFmpegPath       string `env:"FFMPEG_PATH"       envDefault:"ffmpeg"`
	FFmpegBitrate    int    `env:"FFMPEG_BITRATE"    envDefault:"96"`
	CompressionLevel int    `env:"COMPRESSION_LEVEL" envDefault:"3"`
	DefaultVolume    int    `env:"DEFAULT_VOLUME"    envDefault:"100"`
	Database         string `env:"DATABASE"          envDefault:"encore.db"`

	ReconnectTimeout time.Duration `env:"RECONNECT_TIMEOUT" envDefault:"5s"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT"      envDefault:"5m"`
	CommandCooldown  time.Duration `env:"COMMAND_COOLDOWN"  envDefault:"3s"`
}

// SubsonicEnabled reports whether all Subsonic credentials are set.
func (c *Config) SubsonicEnabled() bool {
	return c.SubsonicURL != "" && c.SubsonicUser != "" && c.SubsonicPassword != ""
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse()
}

func parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.SubsonicURL != "" {
		u, err := url.ParseRequestURI(cfg.SubsonicURL)
		if err != nil {
			return nil, fmt.Errorf("invalid SUBSONIC_URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid SUBSONIC_URL scheme: %s (must be http or https)", u.Scheme)
		}
	}

	if cfg.FFmpegBitrate <= 0 {
		log.Printf("Warning: FFMPEG_BITRATE %d is invalid, using 96", cfg.FFmpegBitrate)
		cfg.FFmpegBitrate = 96
	}
	if cfg.CompressionLevel < 0 || cfg.CompressionLevel > 10 {
		log.Printf("Warning: COMPRESSION_LEVEL %d is out of range 0-10, using 3", cfg.CompressionLevel)
		cfg.CompressionLevel = 3
	}
	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 200 {
		log.Printf("Warning: DEFAULT_VOLUME %d is out of range 0-200, using 100", cfg.DefaultVolume)
		cfg.DefaultVolume = 100
	}
	if cfg.ReconnectTimeout <= 0 {
		return nil, fmt.Errorf("RECONNECT_TIMEOUT must be positive")
	}
	if cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("IDLE_TIMEOUT must be positive")
	}

	return &cfg, nil
}
