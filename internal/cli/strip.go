package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/matzehuels/pagestrip/pkg/aspect"
	"github.com/matzehuels/pagestrip/pkg/cache"
	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// stripOpts holds the flags shared by every command that lays out a strip.
type stripOpts struct {
	items          int
	focus          int     // -1 means collapsed
	ratio          float64 // explicit focus ratio; 0 means none
	ratios         string  // comma-separated ratios per item
	dir            string  // image directory supplying ratios
	noCache        bool
	viewportWidth  float64
	viewportHeight float64
	cachedWidth    float64
}

// bind registers the strip flags on f.
func (o *stripOpts) bind(f *flag.FlagSet) {
	o.focus = -1
	f.IntVarP(&o.items, "items", "n", 0, "number of items (default: image count with --dir)")
	f.IntVar(&o.focus, "focus", o.focus, "index of the expanded item (-1 = collapsed)")
	f.Float64Var(&o.ratio, "ratio", 0, "aspect ratio of the focus item, overriding --ratios and --dir")
	f.StringVar(&o.ratios, "ratios", "", "comma-separated aspect ratios per item (empty = unknown)")
	f.StringVar(&o.dir, "dir", "", "read aspect ratios from the images in this directory")
	f.BoolVar(&o.noCache, "no-cache", false, "do not cache image dimensions")
	f.Float64Var(&o.viewportWidth, "viewport-width", 0, "viewport width (default from config)")
	f.Float64Var(&o.viewportHeight, "viewport-height", 0, "viewport height (default from config)")
	f.Float64Var(&o.cachedWidth, "cached-width", 0, "expanded width from a previous pass")
}

// style returns the style selected by --focus and --ratio.
func (o *stripOpts) style() strip.Style {
	switch {
	case o.focus < 0:
		return strip.Collapsed()
	case o.ratio != 0:
		return strip.ExpandedWithRatio(o.focus, o.ratio)
	default:
		return strip.Expanded(o.focus)
	}
}

// viewport returns the flag viewport, falling back to the config per dimension.
func (o *stripOpts) viewport(f *flag.FlagSet, c *CLI) strip.Size {
	size := strip.Size{Width: c.cfg.Viewport.Width, Height: c.cfg.Viewport.Height}
	if f.Changed("viewport-width") {
		size.Width = o.viewportWidth
	}
	if f.Changed("viewport-height") {
		size.Height = o.viewportHeight
	}
	return size
}

// stripEnv is a controller with the resources backing it.
type stripEnv struct {
	ctrl  *controller.Controller
	lib   *aspect.Library // nil without --dir
	cache cache.Cache     // nil without --dir
}

// Close releases the ratio cache.
func (e *stripEnv) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

// name returns the image name of item i, if the strip is backed by a directory.
func (e *stripEnv) name(i int) string {
	if e.lib == nil {
		return ""
	}
	n, _ := e.lib.Name(i)
	return n
}

// newStrip builds a controller from the strip flags. With --dir the images'
// ratios are read before it returns.
func (c *CLI) newStrip(ctx context.Context, f *flag.FlagSet, o *stripOpts) (*stripEnv, error) {
	logger := loggerFromContext(ctx)
	engine, err := c.newEngine()
	if err != nil {
		return nil, err
	}

	env := &stripEnv{}
	var provider strip.AspectRatioProvider
	items := o.items

	switch {
	case o.dir != "":
		lib, ch, err := c.newLibrary(ctx, o.dir, o.noCache)
		if err != nil {
			return nil, err
		}
		env.lib, env.cache = lib, ch

		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Reading %d images...", lib.Len()))
		spinner.Start()
		prog := newProgress(logger)
		if err := lib.Load(ctx); err != nil {
			spinner.Stop()
			env.Close()
			return nil, fmt.Errorf("read images: %w", err)
		}
		spinner.Stop()
		prog.done(fmt.Sprintf("Read %d images", lib.Len()))

		provider = lib
		if !f.Changed("items") {
			items = lib.Len()
		}
	case o.ratios != "":
		ratios, err := aspect.ParseRatios(o.ratios)
		if err != nil {
			return nil, err
		}
		provider = ratios
		if !f.Changed("items") {
			items = len(ratios)
		}
	}

	env.ctrl = controller.New(
		controller.WithEngine(engine),
		controller.WithAspectRatios(provider),
		controller.WithLogger(logger),
	)
	state := controller.State{
		ItemCount: items,
		Style:     o.style(),
		Viewport:  o.viewport(f, c),
	}
	if f.Changed("cached-width") {
		w := o.cachedWidth
		state.CachedExpandedWidth = &w
	}
	if err := env.ctrl.Restore(ctx, state); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}
