// Package cache provides byte-level caching for derived pagestrip data.
//
// The only heavy derived value in pagestrip is an image's aspect ratio, which
// requires opening the file and decoding its header. [Keyer] turns an image's
// identity (path, size, modification time) into a stable key so that ratios
// survive restarts without being trusted after the file changes.
//
// # Backends
//
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: caching disabled
//
// Wrap any backend with [Instrument] to report hits and misses through
// the observability cache hooks.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
type Cache interface {
	// Get returns the value for key. A miss is reported by hit == false
	// with a nil error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// AspectKey is the key for an image's aspect ratio.
	AspectKey(path string, size int64, modTime time.Time) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// AspectKey hashes the image identity under the "aspect" prefix.
func (DefaultKeyer) AspectKey(path string, size int64, modTime time.Time) string {
	return hashKey("aspect", path, size, modTime.UTC().UnixNano())
}
