package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
	if Default().Metrics != strip.DefaultMetrics() {
		t.Error("Default() should use strip.DefaultMetrics")
	}
}

func TestParse(t *testing.T) {
	cfg, warnings, err := Parse(`
[metrics]
max_expanded_width = 120

[viewport]
height = 44

[server]
addr = "127.0.0.1:9000"
session_ttl = "90m"
allowed_origins = ["localhost:*", "example.com"]

[server.log]
file = "/tmp/pagestrip.log"
max_size_mb = 5

[sessions]
backend = "redis"
redis_url = "redis://localhost:6379/1"

[cache]
backend = "none"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"max expanded width", cfg.Metrics.MaxExpandedWidth, 120.0},
		{"collapsed width kept", cfg.Metrics.CollapsedWidth, strip.DefaultCollapsedWidth},
		{"viewport height", cfg.Viewport.Height, 44.0},
		{"viewport width kept", cfg.Viewport.Width, 390.0},
		{"addr", cfg.Server.Addr, "127.0.0.1:9000"},
		{"session ttl", cfg.Server.SessionTTL.Duration, 90 * time.Minute},
		{"allowed origins", len(cfg.Server.AllowedOrigins), 2},
		{"log file", cfg.Server.Log.File, "/tmp/pagestrip.log"},
		{"log max size", cfg.Server.Log.MaxSizeMB, 5},
		{"log backups kept", cfg.Server.Log.MaxBackups, 3},
		{"session backend", cfg.Sessions.Backend, BackendRedis},
		{"cache backend", cfg.Cache.Backend, BackendNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestParseUnknownKeys(t *testing.T) {
	_, warnings, err := Parse(`
[metrics]
colapsed_width = 30

[extra]
x = 1
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	joined := strings.Join(warnings, "\n")
	for _, key := range []string{"metrics.colapsed_width", "extra.x"} {
		if !strings.Contains(joined, key) {
			t.Errorf("warnings = %v, want one naming %s", warnings, key)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad toml", `[metrics`},
		{"bad duration", "[server]\nsession_ttl = \"soon\""},
		{"max below collapsed", "[metrics]\nmax_expanded_width = 10"},
		{"negative viewport", "[viewport]\nheight = -1"},
		{"zero ttl", "[server]\nsession_ttl = \"0s\""},
		{"negative log size", "[server.log]\nmax_size_mb = -1"},
		{"unknown session backend", "[sessions]\nbackend = \"etcd\""},
		{"redis without url", "[sessions]\nbackend = \"redis\""},
		{"mongo without uri", "[sessions]\nbackend = \"mongo\""},
		{"unknown cache backend", "[cache]\nbackend = \"memcached\""},
		{"cache redis without url", "[cache]\nbackend = \"redis\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.input)
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	// Missing default file: defaults, no error.
	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load(default, missing) = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}

	// Missing explicit file: error.
	_, _, err = Load(filepath.Join(dir, "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(explicit, missing) code = %v, want %v", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}

	// Default file present.
	path := filepath.Join(dir, "pagestrip", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[viewport]\nwidth = 320\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err = Load("")
	if err != nil {
		t.Fatalf("Load(default) = %v", err)
	}
	if cfg.Viewport.Width != 320 {
		t.Errorf("Viewport.Width = %v, want 320", cfg.Viewport.Width)
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err := CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg-cache", "pagestrip") {
		t.Errorf("CacheDir() = %q, want /tmp/xdg-cache/pagestrip", dir)
	}
}
