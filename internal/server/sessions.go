package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pagestrip/pkg/aspect"
	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/session"
	"github.com/matzehuels/pagestrip/pkg/sink"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

type sessionResponse struct {
	ID           string           `json:"id"`
	State        controller.State `json:"state"`
	AspectRatios aspect.Ratios    `json:"aspect_ratios,omitempty"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Layout       sink.Output      `json:"layout"`
}

func newSessionResponse(sess *session.Session, res strip.Result) sessionResponse {
	return sessionResponse{
		ID:           sess.ID,
		State:        sess.State,
		AspectRatios: sess.AspectRatios,
		ExpiresAt:    sess.ExpiresAt,
		Layout:       sink.NewOutput(res, sink.WithJSONStyle(sess.State.Style)),
	}
}

type itemsRequest struct {
	ItemCount int `json:"item_count"`
}

type ratioRequest struct {
	Ratio float64 `json:"ratio"`
}

type settleRequest struct {
	ProposedOffset strip.Point `json:"proposed_offset"`
}

// sessionOp mutates a session's controller. It may also edit the session
// itself, e.g. its aspect ratios.
type sessionOp func(ctx context.Context, sess *session.Session, c *controller.Controller) error

func (s *Server) loadSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load session %s", id)
	}
	if sess == nil {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id)
	}
	return sess, nil
}

// update loads the session, applies op, lays the strip out and stores the
// result, extending the session's lifetime. The whole cycle holds the
// session's lock, so concurrent requests on one session never lose a write.
// With notify set, the stored session is published to event listeners
// before the lock is released.
func (s *Server) update(r *http.Request, op sessionOp, notify bool) (*session.Session, *controller.Controller, strip.Result, error) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, nil, strip.Result{}, err
	}
	defer s.sessionLocks.lock(id)()

	sess, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, nil, strip.Result{}, err
	}
	c, err := sess.Controller(ctx, controller.WithEngine(s.engine), controller.WithLogger(s.logger))
	if err != nil {
		// A stored state that no longer validates means the store is corrupt.
		return nil, nil, strip.Result{}, errors.Wrap(errors.ErrCodeInternal, err, "restore session %s", sess.ID)
	}
	if op != nil {
		if err := op(ctx, sess, c); err != nil {
			return nil, nil, strip.Result{}, err
		}
	}
	res, err := c.Layout(ctx)
	if err != nil {
		return nil, nil, strip.Result{}, err
	}
	sess.Save(c)
	sess.Touch(s.sessionTTL)
	if err := s.store.Set(ctx, sess); err != nil {
		return nil, nil, strip.Result{}, errors.Wrap(errors.ErrCodeInternal, err, "save session %s", sess.ID)
	}
	if notify {
		s.publish(newSessionResponse(sess, res))
	}
	return sess, c, res, nil
}

// respond runs op against the session named in the URL and writes the
// session with its new layout.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op sessionOp) {
	sess, _, res, err := s.update(r, op, op != nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess, res))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.controllerFor(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := c.Layout(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess := session.New(c.State(), req.AspectRatios, s.sessionTTL)
	if err := s.store.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "save session"))
		return
	}
	s.logger.Debug("created session", "id", sess.ID, "items", req.ItemCount)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess, res))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, nil)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	unlock := s.sessionLocks.lock(id)
	defer unlock()
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "delete session %s", id))
		return
	}
	s.events.close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	var style strip.Style
	if err := decode(w, r, &style); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context, _ *session.Session, c *controller.Controller) error {
		return c.SetStyle(ctx, style)
	})
}

func (s *Server) handleSetViewport(w http.ResponseWriter, r *http.Request) {
	var size strip.Size
	if err := decode(w, r, &size); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, func(_ context.Context, _ *session.Session, c *controller.Controller) error {
		return c.SetViewport(size)
	})
}

func (s *Server) handleSetItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, func(_ context.Context, sess *session.Session, c *controller.Controller) error {
		if err := c.SetItemCount(req.ItemCount); err != nil {
			return err
		}
		if len(sess.AspectRatios) > req.ItemCount {
			sess.AspectRatios = sess.AspectRatios[:req.ItemCount]
			c.SetAspectRatios(sess.AspectRatios)
		}
		return nil
	})
}

func (s *Server) handleSetRatio(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "item index %q is not an integer", chi.URLParam(r, "index")))
		return
	}
	var req ratioRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, func(ctx context.Context, sess *session.Session, c *controller.Controller) error {
		if err := sess.SetAspectRatio(index, req.Ratio); err != nil {
			return err
		}
		c.SetAspectRatios(sess.AspectRatios)
		c.RatioChanged(ctx, index)
		return nil
	})
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var offset strip.Point
	_, _, _, err := s.update(r, func(ctx context.Context, _ *session.Session, c *controller.Controller) error {
		p, err := c.Settle(ctx, req.ProposedOffset)
		offset = p
		return err
	}, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offset)
}

func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	sess, c, res, err := s.update(r, nil, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := []sink.DrawOption{sink.WithStyle(sess.State.Style), sink.WithLabels()}
	if v := r.URL.Query().Get("offset"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "offset %q is not a number", v))
			return
		}
		opts = append(opts, sink.WithViewport(strip.Point{X: x}, c.Viewport().Width))
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(sink.RenderSVG(res, opts...))
}
