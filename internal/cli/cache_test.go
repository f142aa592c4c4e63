package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pagestrip/pkg/cache"
	"github.com/matzehuels/pagestrip/pkg/config"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(io.Discard, LogInfo)
	c.cfg.Cache.Dir = t.TempDir()
	return c
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	c := New(io.Discard, LogInfo)

	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg-cache", "pagestrip"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirConfigured(t *testing.T) {
	c := newTestCLI(t)
	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != c.cfg.Cache.Dir {
		t.Errorf("cacheDir() = %q, want configured %q", dir, c.cfg.Cache.Dir)
	}
}

func TestCachePathCommand(t *testing.T) {
	c := newTestCLI(t)
	cmd := c.cachePathCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != c.cfg.Cache.Dir {
		t.Errorf("cache path = %q, want %q", got, c.cfg.Cache.Dir)
	}
}

func TestCacheClearCommand(t *testing.T) {
	c := newTestCLI(t)
	fc, err := cache.NewFileCache(c.cfg.Cache.Dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()
	for _, k := range []string{"a", "b"} {
		if err := fc.Set(ctx, k, []byte("x"), time.Hour); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}

	cmd := c.cacheClearCommand()
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("entry survived cache clear")
	}
}

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()

	c := newTestCLI(t)
	ch, err := c.newCache(ctx, true)
	if err != nil {
		t.Fatalf("newCache(noCache): %v", err)
	}
	if reason, off := cache.IsDisabled(ch); !off || reason != "--no-cache" {
		t.Errorf("newCache(noCache) = %T (reason %q), want disabled by --no-cache", ch, reason)
	}

	c.cfg.Cache.Backend = config.BackendNone
	ch, err = c.newCache(ctx, false)
	if err != nil {
		t.Fatalf("newCache(none): %v", err)
	}
	if reason, off := cache.IsDisabled(ch); !off || reason != "backend none" {
		t.Errorf("newCache(none) = %T (reason %q), want disabled by backend none", ch, reason)
	}

	c.cfg.Cache.Backend = config.BackendFile
	ch, err = c.newCache(ctx, false)
	if err != nil {
		t.Fatalf("newCache(file): %v", err)
	}
	defer ch.Close()
	if err := ch.Set(ctx, "aspect:k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if data, ok, err := ch.Get(ctx, "aspect:k"); err != nil || !ok || string(data) != "v" {
		t.Errorf("Get() = %q, %v, %v; want v, true, nil", data, ok, err)
	}
}
