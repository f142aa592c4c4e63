package aspect

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pagestrip/pkg/cache"
	"github.com/matzehuels/pagestrip/pkg/errors"
)

// ListingChanged is passed to OnChange listeners when files were added or
// removed. Item indices may have shifted; hosts should re-read [Library.Len].
const ListingChanged = -1

// DefaultTTL is how long a memoized ratio is kept in the cache.
const DefaultTTL = 30 * 24 * time.Hour

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Library provides the aspect ratios of the images in one directory. Item i
// is the i-th image in name order. Ratios are unknown until [Library.Load]
// (or a watched change) has read the file.
//
// A Library is safe for concurrent use.
type Library struct {
	dir         string
	cache       cache.Cache
	cacheOff    bool
	keyer       cache.Keyer
	ttl         time.Duration
	concurrency int
	logger      *log.Logger

	mu     sync.RWMutex
	names  []string
	index  map[string]int
	ratios map[string]float64

	lmu       sync.Mutex
	listeners []func(index int)
}

// Option configures a Library.
type Option func(*Library)

// WithCache memoizes ratios in c. By default nothing is cached.
func WithCache(c cache.Cache) Option {
	return func(l *Library) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithKeyer overrides the cache key scheme.
func WithKeyer(k cache.Keyer) Option {
	return func(l *Library) {
		if k != nil {
			l.keyer = k
		}
	}
}

// WithTTL sets the cache TTL for memoized ratios.
func WithTTL(ttl time.Duration) Option {
	return func(l *Library) { l.ttl = ttl }
}

// WithConcurrency bounds the number of files read at once.
func WithConcurrency(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *log.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLibrary creates a library over dir and lists its images. No image is
// read until Load is called.
func NewLibrary(dir string, opts ...Option) (*Library, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "image directory %s does not exist", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}

	l := &Library{
		dir:         dir,
		cache:       cache.Disabled("no cache configured"),
		keyer:       cache.NewDefaultKeyer(),
		ttl:         DefaultTTL,
		concurrency: runtime.GOMAXPROCS(0),
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
		ratios:      make(map[string]float64),
	}
	for _, opt := range opts {
		opt(l)
	}
	if reason, off := cache.IsDisabled(l.cache); off {
		l.cacheOff = true
		l.logger.Debug("aspect cache disabled", "dir", dir, "reason", reason)
	}
	if _, err := l.scan(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// Len returns the number of images.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

// Names returns the image file names in item order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.names)
}

// Name returns the file name of item index.
func (l *Library) Name(index int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.names) {
		return "", false
	}
	return l.names[index], true
}

// AspectRatio implements strip.AspectRatioProvider. It never touches the
// disk.
func (l *Library) AspectRatio(index int) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.names) {
		return 0, false
	}
	r, ok := l.ratios[l.names[index]]
	return r, ok
}

// Ratios returns a snapshot of the known ratios in item order; unknown
// entries are 0.
func (l *Library) Ratios() Ratios {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(Ratios, len(l.names))
	for i, name := range l.names {
		out[i] = l.ratios[name]
	}
	return out
}

// OnChange registers fn to be called with an item index whenever that
// item's ratio becomes known or changes, and with [ListingChanged] when the
// directory listing changes. fn runs on the goroutine that learned the
// change and must not block.
func (l *Library) OnChange(fn func(index int)) {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func (l *Library) notify(index int) {
	l.lmu.Lock()
	listeners := slices.Clone(l.listeners)
	l.lmu.Unlock()
	for _, fn := range listeners {
		fn(index)
	}
}

// Load reads every image whose ratio is not yet known. Files that cannot be
// decoded stay unknown and are logged; Load fails only on context
// cancellation or if the directory cannot be listed.
func (l *Library) Load(ctx context.Context) error {
	changed, err := l.scan()
	if err != nil {
		return err
	}
	if changed {
		l.notify(ListingChanged)
	}

	l.mu.RLock()
	var pending []string
	for _, name := range l.names {
		if _, ok := l.ratios[name]; !ok {
			pending = append(pending, name)
		}
	}
	l.mu.RUnlock()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, name := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := l.Reload(gctx, name); err != nil {
				l.logger.Debug("skipping image", "file", name, "err", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.logger.Debug("loaded aspect ratios",
		"dir", l.dir,
		"files", len(pending),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Reload re-reads one image by file name and notifies listeners if its
// ratio changed.
func (l *Library) Reload(ctx context.Context, name string) error {
	ratio, err := l.readRatio(ctx, name)
	if err != nil {
		return err
	}

	l.mu.Lock()
	prev, had := l.ratios[name]
	l.ratios[name] = ratio
	index, listed := l.index[name]
	l.mu.Unlock()

	if listed && (!had || prev != ratio) {
		l.notify(index)
	}
	return nil
}

// forget drops the ratio of a file that was rewritten or removed.
func (l *Library) forget(name string) {
	l.mu.Lock()
	delete(l.ratios, name)
	l.mu.Unlock()
}

// scan re-lists the directory and reports whether the listing changed.
func (l *Library) scan() (bool, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return false, fmt.Errorf("list %s: %w", l.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.Equal(names, l.names) {
		return false, nil
	}
	l.names = names
	l.index = make(map[string]int, len(names))
	for i, n := range names {
		l.index[n] = i
	}
	for n := range l.ratios {
		if _, ok := l.index[n]; !ok {
			delete(l.ratios, n)
		}
	}
	return true, nil
}

// sizeEntry is the cached form of an image's pixel size.
type sizeEntry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (l *Library) readRatio(ctx context.Context, name string) (float64, error) {
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	key := l.keyer.AspectKey(path, info.Size(), info.ModTime())

	if r, ok := l.cachedRatio(ctx, key); ok {
		return r, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", name)
	}
	r, ok := FromSize(cfg.Width, cfg.Height)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidFormat, "%s has empty bounds %dx%d", name, cfg.Width, cfg.Height)
	}
	l.logger.Debug("read image header", "file", name, "format", format, "width", cfg.Width, "height", cfg.Height)

	l.storeSize(ctx, key, name, cfg.Width, cfg.Height)
	return r, nil
}

func (l *Library) cachedRatio(ctx context.Context, key string) (float64, bool) {
	if l.cacheOff {
		return 0, false
	}
	data, hit, err := l.cache.Get(ctx, key)
	if err != nil || !hit {
		return 0, false
	}
	var e sizeEntry
	if json.Unmarshal(data, &e) != nil {
		return 0, false
	}
	return FromSize(e.Width, e.Height)
}

func (l *Library) storeSize(ctx context.Context, key, name string, width, height int) {
	if l.cacheOff {
		return
	}
	data, err := json.Marshal(sizeEntry{Width: width, Height: height})
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, key, data, l.ttl); err != nil {
		l.logger.Warn("cache write failed", "file", name, "err", err)
	}
}
