// Package config loads pagestrip's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/pagestrip/config.toml (falling back to
// ~/.config/pagestrip/config.toml). A missing file is not an error: every
// setting has a default. Keys the loader does not recognize are returned as
// warnings so that typos are visible without breaking startup.
//
//	[metrics]
//	collapsed_width = 21
//	max_expanded_width = 84
//
//	[viewport]
//	width = 390
//	height = 30
//
//	[server]
//	addr = ":8080"
//	session_ttl = "24h"
//	allowed_origins = ["localhost:*"]
//
//	[server.log]
//	file = "/var/log/pagestrip/server.log"
//	max_size_mb = 50
//
//	[sessions]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[cache]
//	backend = "file"
//	ttl = "720h"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

const appName = "pagestrip"

// Session backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config is the complete configuration.
type Config struct {
	Metrics  strip.Metrics  `toml:"metrics"`
	Viewport ViewportConfig `toml:"viewport"`
	Server   ServerConfig   `toml:"server"`
	Sessions SessionsConfig `toml:"sessions"`
	Cache    CacheConfig    `toml:"cache"`
}

// ViewportConfig is the default viewport for CLI commands.
type ViewportConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string    `toml:"addr"`
	SessionTTL     Duration  `toml:"session_ttl"`
	AllowedOrigins []string  `toml:"allowed_origins"`
	Log            LogConfig `toml:"log"`
}

// LogConfig sends server logs to a rotating file in addition to stderr.
// An empty File disables it.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// SessionsConfig selects the session store.
type SessionsConfig struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisURL        string `toml:"redis_url"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// CacheConfig selects the aspect-ratio cache.
type CacheConfig struct {
	Backend  string   `toml:"backend"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

// Duration is a time.Duration written as a string such as "90m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Metrics:  strip.DefaultMetrics(),
		Viewport: ViewportConfig{Width: 390, Height: 30},
		Server: ServerConfig{
			Addr:       ":8080",
			SessionTTL: Duration{24 * time.Hour},
			Log: LogConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Sessions: SessionsConfig{
			Backend:         BackendMemory,
			MongoDatabase:   "pagestrip",
			MongoCollection: "sessions",
		},
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     Duration{30 * 24 * time.Hour},
		},
	}
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the default cache directory (~/.cache/pagestrip/).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the config at path, or at DefaultPath when path is empty.
// An explicitly named file must exist; the default file may be absent.
// The returned warnings list unrecognized keys.
func Load(path string) (*Config, []string, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil, nil
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil, nil
	}
	if os.IsNotExist(err) {
		return nil, nil, errors.New(errors.ErrCodeFileNotFound, "config file %s not found", path)
	}
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key %q in %s", key.String(), path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Parse decodes a config from TOML text, for tests and embedded defaults.
func Parse(data string) (*Config, []string, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key %q", key.String()))
	}
	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateViewport(c.Viewport.Width, c.Viewport.Height); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "[viewport]")
	}
	if c.Server.SessionTTL.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[server] session_ttl must be positive")
	}
	if l := c.Server.Log; l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[server.log] limits must not be negative")
	}

	switch c.Sessions.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Sessions.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "[sessions] redis backend requires redis_url")
		}
	case BackendMongo:
		if c.Sessions.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "[sessions] mongo backend requires mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "[sessions] unknown backend %q", c.Sessions.Backend)
	}

	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] redis backend requires redis_url")
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "[cache] ttl must not be negative")
	}
	return nil
}
