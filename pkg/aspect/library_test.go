package aspect

import (
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/pagestrip/pkg/cache"
	"github.com/matzehuels/pagestrip/pkg/errors"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img := image.NewGray(image.Rect(0, 0, w, h))
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeGIF(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	if err := gif.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

// memCache is an in-memory Cache that counts writes.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

func TestNewLibraryErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewLibrary(filepath.Join(dir, "missing"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("NewLibrary(missing) code = %v, want %v", errors.GetCode(err), errors.ErrCodeFileNotFound)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = NewLibrary(file)
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("NewLibrary(file) code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPath)
	}
}

func TestLibraryListing(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "b.png", 10, 10)
	writePNG(t, dir, "a.png", 10, 10)
	writeGIF(t, dir, "c.GIF", 10, 10)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.png"), 0755)

	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	want := []string{"a.png", "b.png", "c.GIF"}
	got := lib.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if lib.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lib.Len())
	}
	if name, ok := lib.Name(1); !ok || name != "b.png" {
		t.Errorf("Name(1) = %q, %v; want b.png, true", name, ok)
	}
	if _, ok := lib.Name(3); ok {
		t.Error("Name(3) should be out of range")
	}

	// Nothing is read before Load.
	if _, ok := lib.AspectRatio(0); ok {
		t.Error("AspectRatio should be unknown before Load")
	}
}

func TestLibraryLoad(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "01.png", 300, 200)
	writeGIF(t, dir, "02.gif", 100, 400)
	os.WriteFile(filepath.Join(dir, "03.jpg"), []byte("not a jpeg"), 0644)

	lib, err := NewLibrary(dir, WithConcurrency(2))
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	changed := map[int]bool{}
	lib.OnChange(func(i int) {
		mu.Lock()
		defer mu.Unlock()
		changed[i] = true
	})

	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		index  int
		want   float64
		wantOK bool
	}{
		{0, 1.5, true},
		{1, 0.25, true},
		{2, 0, false},
	}
	for _, tt := range tests {
		got, ok := lib.AspectRatio(tt.index)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("AspectRatio(%d) = %v, %v; want %v, %v", tt.index, got, ok, tt.want, tt.wantOK)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if !changed[0] || !changed[1] || changed[2] {
		t.Errorf("OnChange indices = %v, want 0 and 1 only", changed)
	}

	ratios := lib.Ratios()
	if len(ratios) != 3 || ratios[0] != 1.5 || ratios[2] != 0 {
		t.Errorf("Ratios() = %v, want [1.5 0.25 0]", ratios)
	}
}

func TestLibraryLoadUsesCache(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 40, 20)
	mc := newMemCache()

	lib, err := NewLibrary(dir, WithCache(mc))
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if mc.sets != 1 {
		t.Fatalf("cache sets after first Load = %d, want 1", mc.sets)
	}

	// A second library over the same unchanged file reads the cache.
	lib2, err := NewLibrary(dir, WithCache(mc))
	if err != nil {
		t.Fatal(err)
	}
	if err := lib2.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if mc.sets != 1 {
		t.Errorf("cache sets after second Load = %d, want 1", mc.sets)
	}
	if r, ok := lib2.AspectRatio(0); !ok || r != 2 {
		t.Errorf("AspectRatio(0) = %v, %v; want 2, true", r, ok)
	}
}

func TestLibraryLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.png", "b.png", "c.png"} {
		writePNG(t, dir, n, 2, 1)
	}
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := lib.Load(ctx); err != context.Canceled {
		t.Errorf("Load(cancelled) = %v, want %v", err, context.Canceled)
	}
}

func TestLibraryReload(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 10, 10)
	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	calls := 0
	lib.OnChange(func(int) { calls++ })

	// Same content: no notification.
	if err := lib.Reload(context.Background(), "a.png"); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("OnChange calls after unchanged reload = %d, want 0", calls)
	}

	writePNG(t, dir, "a.png", 30, 10)
	if err := lib.Reload(context.Background(), "a.png"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("OnChange calls after resize = %d, want 1", calls)
	}
	if r, _ := lib.AspectRatio(0); r != 3 {
		t.Errorf("AspectRatio(0) = %v, want 3", r)
	}
}

func TestIsImage(t *testing.T) {
	tests := map[string]bool{
		"a.png": true, "a.JPG": true, "a.jpeg": true, "a.webp": true,
		"a.bmp": true, "a.tiff": true, "a.tif": true, "a.gif": true,
		"a.txt": false, "png": false, "a.png.bak": false,
	}
	for name, want := range tests {
		if got := IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}
