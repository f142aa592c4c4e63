package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/matzehuels/pagestrip/pkg/errors"
)

const (
	lockFileName   = ".lock"
	lockRetryDelay = 10 * time.Millisecond
)

// FileStore is a file-based session store. Sessions are stored as JSON files
// in a directory. Several processes may share the directory: writes are
// serialized through a lock file and land with an atomic rename, so readers
// never see a partial session.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
	lock    *flock.Flock
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to ~/.local/state/pagestrip/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".local", "state", "pagestrip", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		lock:    flock.New(filepath.Join(baseDir, lockFileName)),
	}, nil
}

// sessionPath maps an ID to its file. IDs are validated first so that a
// crafted ID cannot name a file outside the directory.
func (s *FileStore) sessionPath(sessionID string) (string, error) {
	if err := errors.ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, sessionID+".json"), nil
}

// exclusive runs fn while holding both the in-process mutex and the
// directory lock.
func (s *FileStore) exclusive(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock session dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock session dir: %w", ctx.Err())
	}
	defer s.lock.Unlock()
	return fn()
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	path, err := s.sessionPath(sessionID)
	if err != nil {
		return nil, err
	}

	sess, err := readSession(path)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.IsExpired() {
		err := s.exclusive(ctx, func() error {
			return removeIfExpired(path)
		})
		return nil, err
	}
	return sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	path, err := s.sessionPath(sess.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.exclusive(ctx, func() error {
		return s.writeAtomic(path, data)
	})
}

// writeAtomic writes data to a temporary file in the store directory and
// renames it over path.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.baseDir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	path, err := s.sessionPath(sessionID)
	if err != nil {
		return err
	}

	return s.exclusive(ctx, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove session file: %w", err)
		}
		return nil
	})
}

func (s *FileStore) Cleanup(ctx context.Context) error {
	return s.exclusive(ctx, func() error {
		entries, err := os.ReadDir(s.baseDir)
		if err != nil {
			return fmt.Errorf("read session dir: %w", err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			_ = removeIfExpired(filepath.Join(s.baseDir, entry.Name()))
		}
		return nil
	})
}

// Close releases the directory lock file handle.
func (s *FileStore) Close() error {
	return s.lock.Close()
}

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

// readSession returns nil, nil when path does not exist.
func readSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &sess, nil
}

// removeIfExpired re-reads path under the lock, since another process may
// have refreshed the session since it was last read.
func removeIfExpired(path string) error {
	sess, err := readSession(path)
	if err != nil || sess == nil || !sess.IsExpired() {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
