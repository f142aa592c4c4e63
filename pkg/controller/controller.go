// Package controller hosts a strip layout.
//
// The layout engine in package strip is pure: it never remembers the
// expanded width it resolved or notices that a ratio became known. A
// [Controller] is the host that does. It owns the strip's inputs, keeps the
// expanded-width cache valid for as long as the focus is unchanged, and
// recomputes lazily when something changed.
//
//	c := controller.New(controller.WithAspectRatios(lib))
//	c.SetItemCount(lib.Len())
//	c.SetViewport(strip.Size{Width: 390, Height: 30})
//	c.Expand(3)
//	result, err := c.Layout(ctx)
package controller

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/observability"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// Reasons passed to the OnExpandedWidthDiscarded hook.
const (
	ReasonStyleChanged = "style changed"
	ReasonRatioChanged = "ratio changed"
	ReasonInvalidated  = "invalidated"
	ReasonRestored     = "restored"
)

// State is the serializable part of a Controller.
type State struct {
	ItemCount           int         `json:"item_count"`
	Style               strip.Style `json:"style"`
	Viewport            strip.Size  `json:"viewport"`
	CachedExpandedWidth *float64    `json:"cached_expanded_width,omitempty"`
}

// Validate checks that the state could have been produced by a Controller
// using metrics m.
func (s State) Validate(m strip.Metrics) error {
	if err := errors.ValidateItemCount(s.ItemCount); err != nil {
		return err
	}
	if err := errors.ValidateViewport(s.Viewport.Width, s.Viewport.Height); err != nil {
		return err
	}
	if err := checkStyle(s.Style, s.ItemCount); err != nil {
		return err
	}
	if s.CachedExpandedWidth != nil {
		return errors.ValidateExpandedWidth(*s.CachedExpandedWidth, m.MinExpandedWidth(), m.MaxExpandedWidth)
	}
	return nil
}

// Controller owns one strip's layout inputs and its last Result.
// It is safe for concurrent use.
type Controller struct {
	engine *strip.Engine
	logger *log.Logger

	mu          sync.Mutex
	ratios      strip.AspectRatioProvider
	itemCount   int
	style       strip.Style
	viewport    strip.Size
	cachedWidth *float64
	result      strip.Result
	dirty       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithEngine sets the layout engine. The default uses strip.DefaultMetrics.
func WithEngine(e *strip.Engine) Option {
	return func(c *Controller) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithAspectRatios sets the provider consulted for the focus item's ratio.
func WithAspectRatios(p strip.AspectRatioProvider) Option {
	return func(c *Controller) { c.ratios = p }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller for an empty, collapsed strip.
func New(opts ...Option) *Controller {
	c := &Controller{
		engine: strip.New(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		dirty:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engine returns the controller's layout engine.
func (c *Controller) Engine() *strip.Engine { return c.engine }

// ItemCount returns the number of items.
func (c *Controller) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemCount
}

// Style returns the current style.
func (c *Controller) Style() strip.Style {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.style
}

// Viewport returns the viewport size.
func (c *Controller) Viewport() strip.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// SetAspectRatios replaces the ratio provider. The cached expanded width is
// kept; call RatioChanged if the focus item's ratio differs.
func (c *Controller) SetAspectRatios(p strip.AspectRatioProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ratios = p
	c.dirty = true
}

// SetItemCount changes the number of items. A count that would leave the
// focus index out of range is rejected; collapse first.
func (c *Controller) SetItemCount(n int) error {
	if err := errors.ValidateItemCount(n); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := checkStyle(c.style, n); err != nil {
		return err
	}
	if n != c.itemCount {
		c.itemCount = n
		c.dirty = true
	}
	return nil
}

// SetViewport changes the viewport size. The cached expanded width
// survives a resize for as long as the focus is unchanged.
func (c *Controller) SetViewport(size strip.Size) error {
	if err := errors.ValidateViewport(size.Width, size.Height); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if size != c.viewport {
		c.viewport = size
		c.dirty = true
	}
	return nil
}

// SetStyle applies s. Re-applying the current style is a no-op and keeps
// the cached expanded width; any other change discards it.
func (c *Controller) SetStyle(ctx context.Context, s strip.Style) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setStyleLocked(ctx, s)
}

func (c *Controller) setStyleLocked(ctx context.Context, s strip.Style) error {
	if err := checkStyle(s, c.itemCount); err != nil {
		return err
	}
	if s == c.style {
		return nil
	}
	c.logger.Debug("style changed", "from", c.style, "to", s)
	c.style = s
	c.discardLocked(ctx, ReasonStyleChanged)
	return nil
}

// Expand expands item index, taking its ratio from the provider.
func (c *Controller) Expand(ctx context.Context, index int) error {
	return c.SetStyle(ctx, strip.Expanded(index))
}

// ExpandWithRatio expands item index with an explicit ratio.
func (c *Controller) ExpandWithRatio(ctx context.Context, index int, ratio float64) error {
	if err := errors.ValidateRatio(ratio); err != nil {
		return err
	}
	return c.SetStyle(ctx, strip.ExpandedWithRatio(index, ratio))
}

// Collapse collapses the strip.
func (c *Controller) Collapse(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Collapsed is valid for any item count.
	_ = c.setStyleLocked(ctx, strip.Collapsed())
}

// Step moves the focus by delta items, clamped to the strip. The new focus
// takes its ratio from the provider. It returns the new focus index and
// whether the style changed; a collapsed or empty strip does not step.
func (c *Controller) Step(ctx context.Context, delta int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	focus, ok := c.style.FocusIndex()
	if !ok || c.itemCount == 0 {
		return 0, false
	}
	next := min(max(focus+delta, 0), c.itemCount-1)
	if next == focus {
		return focus, false
	}
	if err := c.setStyleLocked(ctx, strip.Expanded(next)); err != nil {
		return focus, false
	}
	return next, true
}

// RatioChanged tells the controller that the provider's ratio for index
// changed. If index is the focus item (or negative, meaning any item) and
// the style has no ratio override, the cached width is discarded so the
// next Layout resolves it again.
func (c *Controller) RatioChanged(ctx context.Context, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	focus, ok := c.style.FocusIndex()
	if !ok {
		return
	}
	if _, override := c.style.AspectRatioOverride(); override {
		return
	}
	if index >= 0 && index != focus {
		return
	}
	c.discardLocked(ctx, ReasonRatioChanged)
}

// Invalidate discards the cached expanded width and forces a recompute.
func (c *Controller) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked(ctx, ReasonInvalidated)
}

func (c *Controller) discardLocked(ctx context.Context, reason string) {
	c.dirty = true
	if c.cachedWidth == nil {
		return
	}
	c.cachedWidth = nil
	observability.Layout().OnExpandedWidthDiscarded(ctx, reason)
	c.logger.Debug("discarded expanded width", "reason", reason)
}

// Dirty reports whether the next Layout call will recompute.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Layout returns the current layout, recomputing it only if an input
// changed since the last call. The resolved expanded width is kept as the
// cache for later passes.
func (c *Controller) Layout(ctx context.Context) (strip.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layoutLocked(ctx)
}

func (c *Controller) layoutLocked(ctx context.Context) (strip.Result, error) {
	if !c.dirty {
		return c.result, nil
	}

	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, c.itemCount, c.style.String())
	start := time.Now()

	result, err := c.engine.Recompute(strip.Input{
		ItemCount:           c.itemCount,
		Style:               c.style,
		ViewportHeight:      c.viewport.Height,
		CachedExpandedWidth: c.cachedWidth,
		AspectRatios:        c.ratios,
	})
	elapsed := time.Since(start)
	hooks.OnLayoutComplete(ctx, c.itemCount, elapsed, err)
	if err != nil {
		return strip.Result{}, err
	}

	if w, ok := result.ExpandedWidth(); ok && c.cachedWidth == nil {
		c.cachedWidth = &w
	}
	c.result = result
	c.dirty = false

	c.logger.Debug("computed layout",
		"items", c.itemCount,
		"style", c.style,
		"content_width", result.ContentWidth(),
		"duration", elapsed)
	return result, nil
}

// Settle returns the offset the strip should come to rest at when a scroll
// would end at proposed. In collapsed style the item nearest the viewport
// center is centered.
func (c *Controller) Settle(ctx context.Context, proposed strip.Point) (strip.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, err := c.layoutLocked(ctx)
	if err != nil {
		return proposed, err
	}
	w := c.viewport.Width
	return c.engine.TargetOffset(c.style, result, w, proposed, result.CenterLookup(w)), nil
}

// State returns a snapshot of the controller's inputs.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		ItemCount: c.itemCount,
		Style:     c.style,
		Viewport:  c.viewport,
	}
	if c.cachedWidth != nil {
		w := *c.cachedWidth
		s.CachedExpandedWidth = &w
	}
	return s
}

// Restore replaces the controller's inputs with s, including the cached
// expanded width, and marks the layout dirty.
func (c *Controller) Restore(ctx context.Context, s State) error {
	if err := s.Validate(c.engine.Metrics()); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.itemCount = s.ItemCount
	c.style = s.Style
	c.viewport = s.Viewport
	c.cachedWidth = nil
	if s.CachedExpandedWidth != nil && s.Style.IsExpanded() {
		w := *s.CachedExpandedWidth
		c.cachedWidth = &w
	}
	c.dirty = true
	c.logger.Debug("restored state", "items", s.ItemCount, "style", s.Style)
	return nil
}

func checkStyle(s strip.Style, itemCount int) error {
	focus, ok := s.FocusIndex()
	if !ok {
		return nil
	}
	if focus < 0 || focus >= itemCount {
		return errors.New(errors.ErrCodeInvalidFocusIndex, "focus index %d out of range [0, %d)", focus, itemCount)
	}
	if r, ok := s.AspectRatioOverride(); ok {
		return errors.ValidateRatio(r)
	}
	return nil
}
