package cache

import "time"

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// The server uses it so that several deployments can share one Redis.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "pagestrip:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// AspectKey generates a prefixed aspect-ratio key.
func (k *ScopedKeyer) AspectKey(path string, size int64, modTime time.Time) string {
	return k.prefix + k.inner.AspectKey(path, size, modTime)
}
