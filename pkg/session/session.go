// Package session persists strip controllers between HTTP requests.
//
// A [Session] holds a controller's [controller.State] together with the
// aspect ratios the client has reported, so a stateless server can rebuild
// the controller on each request. Stores implement expiry; backends:
//   - [MemoryStore]: in-process, for development and tests
//   - [FileStore]: JSON files, for a single server instance
//   - [RedisStore]: Redis keys with TTLs, for multi-instance deployments
//   - [MongoStore]: MongoDB documents with a TTL index
//
// # Usage
//
//	sess := session.New(state, ratios, session.DefaultTTL)
//	if err := store.Set(ctx, sess); err != nil {
//	    return err
//	}
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // Not found or expired
//	}
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pagestrip/pkg/aspect"
	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/errors"
)

// DefaultTTL is the default session lifetime.
const DefaultTTL = 24 * time.Hour

// Session is one client's strip.
type Session struct {
	ID           string           `json:"id"`
	State        controller.State `json:"state"`
	AspectRatios aspect.Ratios    `json:"aspect_ratios,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// New creates a session with a fresh random ID.
func New(state controller.State, ratios aspect.Ratios, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		State:        state,
		AspectRatios: ratios,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session to ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	s.ExpiresAt = time.Now().UTC().Add(ttl)
}

// SetAspectRatio records the ratio of item index, growing the ratio list as
// needed. A zero ratio forgets it.
func (s *Session) SetAspectRatio(index int, ratio float64) error {
	if index < 0 || index >= s.State.ItemCount {
		return errors.New(errors.ErrCodeInvalidFocusIndex, "item index %d out of range [0, %d)", index, s.State.ItemCount)
	}
	if ratio != 0 {
		if err := errors.ValidateRatio(ratio); err != nil {
			return err
		}
	}
	for len(s.AspectRatios) <= index {
		s.AspectRatios = append(s.AspectRatios, 0)
	}
	s.AspectRatios[index] = ratio
	return nil
}

// Controller rebuilds the session's controller.
func (s *Session) Controller(ctx context.Context, opts ...controller.Option) (*controller.Controller, error) {
	opts = append([]controller.Option{controller.WithAspectRatios(s.AspectRatios)}, opts...)
	c := controller.New(opts...)
	if err := c.Restore(ctx, s.State); err != nil {
		return nil, err
	}
	return c, nil
}

// Save copies the controller's state into the session.
func (s *Session) Save(c *controller.Controller) {
	s.State = c.State()
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session, replacing any session with the same ID.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (may be a no-op where the backend
	// expires entries itself).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
