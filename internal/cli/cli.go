// Package cli implements the pagestrip command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagestrip/pkg/aspect"
	"github.com/matzehuels/pagestrip/pkg/cache"
	"github.com/matzehuels/pagestrip/pkg/config"
	"github.com/matzehuels/pagestrip/pkg/session"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pagestrip"

	// cacheScope prefixes every key pagestrip writes to a shared cache.
	cacheScope = appName
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	logOut     io.Writer
	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		logOut: w,
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the active configuration.
func (c *CLI) Config() *config.Config { return c.cfg }

// loadConfig reads the configuration named by --config (or the default
// location) and reports unknown keys as warnings.
func (c *CLI) loadConfig() error {
	cfg, warnings, err := config.Load(c.configPath)
	for _, w := range warnings {
		c.Logger.Warn(w)
	}
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newEngine builds a layout engine from the configured metrics.
func (c *CLI) newEngine() (*strip.Engine, error) {
	return strip.NewEngine(strip.WithMetrics(c.cfg.Metrics))
}

// newCache opens the configured aspect-ratio cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.Disabled("--no-cache"), nil
	}
	switch c.cfg.Cache.Backend {
	case config.BackendNone:
		return cache.Disabled("backend none"), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, c.cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc), nil
	default:
		dir, err := c.cacheDir()
		if err != nil {
			return cache.Disabled("no cache directory: " + err.Error()), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return cache.Instrument(fc), nil
	}
}

// cacheDir returns the file cache directory: the configured one, else the
// XDG default (~/.cache/pagestrip/).
func (c *CLI) cacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return config.CacheDir()
}

// newLibrary opens dir as an aspect-ratio library backed by the configured cache.
func (c *CLI) newLibrary(ctx context.Context, dir string, noCache bool) (*aspect.Library, cache.Cache, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	lib, err := aspect.NewLibrary(dir,
		aspect.WithCache(ch),
		aspect.WithKeyer(cache.NewScopedKeyer(nil, cacheScope)),
		aspect.WithTTL(c.cfg.Cache.TTL.Duration),
		aspect.WithLogger(c.Logger),
	)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}
	return lib, ch, nil
}

// newSessionStore opens the configured session backend.
func (c *CLI) newSessionStore(ctx context.Context) (session.Store, error) {
	sc := c.cfg.Sessions
	switch sc.Backend {
	case config.BackendFile:
		return session.NewFileStore(sc.Dir)
	case config.BackendRedis:
		return session.NewRedisStore(ctx, sc.RedisURL)
	case config.BackendMongo:
		return session.NewMongoStore(ctx, sc.MongoURI, sc.MongoDatabase, sc.MongoCollection)
	default:
		return session.NewMemoryStore(), nil
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s, fallback string) []string {
	if s == "" {
		return []string{fallback}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// openOutput returns a writer for path, or stdout when path is empty or "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
