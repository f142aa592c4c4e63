// Package server exposes strip layout over HTTP.
//
// Stateless endpoints recompute a layout from the request body alone.
// Session endpoints keep a controller's state in a [session.Store] between
// requests so clients can mutate the strip incrementally and profit from the
// cached expanded width.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/pagestrip/pkg/buildinfo"
	"github.com/matzehuels/pagestrip/pkg/session"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

const (
	maxBodyBytes    = 1 << 20
	cleanupInterval = 10 * time.Minute
)

// Server is the pagestrip HTTP API.
type Server struct {
	engine       *strip.Engine
	store        session.Store
	logger       *log.Logger
	sessionTTL   time.Duration
	origins      []string
	events       *broker
	sessionLocks *keyedMutex
	router       chi.Router
	httpServer   *http.Server

	closing   chan struct{}
	closeOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithEngine sets the layout engine. Defaults to an engine with default metrics.
func WithEngine(e *strip.Engine) Option {
	return func(s *Server) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithStore sets the session store. Defaults to a [session.MemoryStore].
func WithStore(st session.Store) Option {
	return func(s *Server) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionTTL sets how long an untouched session lives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAllowedOrigins sets the host patterns (e.g. "localhost:*") allowed to
// open event streams from a browser. Same-origin requests are always allowed.
func WithAllowedOrigins(patterns ...string) Option {
	return func(s *Server) {
		s.origins = append(s.origins, patterns...)
	}
}

// New creates a Server with its routes mounted.
func New(opts ...Option) *Server {
	s := &Server{
		engine:       strip.New(),
		store:        session.NewMemoryStore(),
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
		sessionTTL:   session.DefaultTTL,
		events:       newBroker(),
		sessionLocks: newKeyedMutex(),
		closing:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/center", s.handleCenter)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/style", s.handleSetStyle)
			r.Put("/viewport", s.handleSetViewport)
			r.Put("/items", s.handleSetItems)
			r.Put("/ratios/{index}", s.handleSetRatio)
			r.Post("/settle", s.handleSettle)
			r.Get("/render.svg", s.handleRenderSVG)
			r.Get("/events", s.handleSessionEvents)
		})
	})
	return r
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// Expired sessions are swept periodically while the server runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Hijacked event streams are not tracked by Shutdown.
	s.closeOnce.Do(func() { close(s.closing) })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}
