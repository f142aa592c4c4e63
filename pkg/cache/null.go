package cache

import (
	"context"
	"time"
)

// NullCache is the disabled backend: every Get misses and writes are
// dropped. Reason says why caching is off ("--no-cache", "backend none",
// ...) and ends up in debug logs.
type NullCache struct {
	Reason string
}

// Disabled returns a NullCache that remembers why caching is off.
func Disabled(reason string) *NullCache {
	return &NullCache{Reason: reason}
}

// IsDisabled reports whether c stores nothing, looking through
// [Instrument]. The reason is the one given to [Disabled].
func IsDisabled(c Cache) (reason string, disabled bool) {
	if i, ok := c.(instrumented); ok {
		c = i.Cache
	}
	n, ok := c.(*NullCache)
	if !ok {
		return "", false
	}
	return n.Reason, true
}

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
