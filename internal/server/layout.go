package server

import (
	"net/http"

	"github.com/matzehuels/pagestrip/pkg/aspect"
	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/sink"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// layoutRequest is a complete set of layout inputs.
type layoutRequest struct {
	ItemCount           int           `json:"item_count"`
	Style               strip.Style   `json:"style"`
	Viewport            strip.Size    `json:"viewport"`
	CachedExpandedWidth *float64      `json:"cached_expanded_width,omitempty"`
	AspectRatios        aspect.Ratios `json:"aspect_ratios,omitempty"`
}

func (req layoutRequest) state() controller.State {
	return controller.State{
		ItemCount:           req.ItemCount,
		Style:               req.Style,
		Viewport:            req.Viewport,
		CachedExpandedWidth: req.CachedExpandedWidth,
	}
}

type centerRequest struct {
	layoutRequest
	ProposedOffset strip.Point `json:"proposed_offset"`
}

// controllerFor builds a throwaway controller from a stateless request.
func (s *Server) controllerFor(r *http.Request, req layoutRequest) (*controller.Controller, error) {
	c := controller.New(
		controller.WithEngine(s.engine),
		controller.WithAspectRatios(req.AspectRatios),
		controller.WithLogger(s.logger),
	)
	if err := c.Restore(r.Context(), req.state()); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, sink.NewOutput(res, sink.WithJSONStyle(req.Style)))
}

func (s *Server) handleCenter(w http.ResponseWriter, r *http.Request) {
	var req centerRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.controllerFor(r, req.layoutRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := c.Settle(r.Context(), req.ProposedOffset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
