package config

import (
	"time"

	"github.com/stocklens/stocklens/internal/ailink"
)

// Config is the complete application configuration. Values are layered:
// built-in defaults, an optional YAML file, .env files, then STOCKLENS_*
// environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	AILink   ailink.Config  `mapstructure:"ailink"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Sessions SessionsConfig `mapstructure:"sessions"`

	// AdminToken enables the /admin/signal endpoint.
	AdminToken string `mapstructure:"admin_token"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig selects the level and gofulmen logging profile
// (SIMPLE, STRUCTURED or ENTERPRISE).
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus exporter configuration. The exporter
// listens on Port and is also proxied at /metrics on the main port.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SpeechConfig controls text-to-speech playback.
type SpeechConfig struct {
	Model string `mapstructure:"model"`
	Voice string `mapstructure:"voice"`

	// Player is the external command used by `speak` to play a WAV file.
	// Empty picks a platform default.
	Player string `mapstructure:"player"`

	// ClipTTL bounds how long the server keeps an unfetched clip.
	ClipTTL time.Duration `mapstructure:"clip_ttl"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// SessionsConfig controls the server's in-memory sessions.
type SessionsConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}
