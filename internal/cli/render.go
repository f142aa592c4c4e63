package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagestrip/pkg/sink"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	strip   stripOpts
	output  string   // output file (single format) or base path (multiple)
	formats []string // output formats: "svg", "png", "json"
	offsetX float64  // viewport offset for the drawn window
	scale   float64  // PNG scale factor
	labels  bool     // draw item indices
}

// validFormats is the set of supported render formats.
var validFormats = map[string]bool{formatSVG: true, formatPNG: true, formatJSON: true}

// validateFormats checks that all requested formats are valid.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return fmt.Errorf("invalid format: %s (must be 'svg', 'png', or 'json')", f)
		}
	}
	return nil
}

// renderCommand creates the render command for drawing a strip.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: 2, labels: true}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw a strip as SVG, PNG or JSON",
		Long: `Draw the frames of a strip.

With --offset-x the viewport window and its center line are drawn on top,
which makes the settle behavior of 'pagestrip center' visible.

Examples:
  pagestrip render -n 8 --focus 3 --ratio 1.5 -o strip.svg
  pagestrip render --dir ./photos --focus 0 -f svg,png -o out/strip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr, formatSVG)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), cmd, &opts)
		},
	}

	opts.strip.bind(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple, default: strip)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), png, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.offsetX, "offset-x", 0, "draw the viewport window at this offset")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.labels, "labels", opts.labels, "draw item indices")

	return cmd
}

// basePath derives the base output path. A known format extension on
// output is stripped; an empty output becomes "strip".
func basePath(output string) string {
	if output == "" {
		return "strip"
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns where format is written. A single format honors
// output verbatim when it is given.
func (o *renderOpts) outputPath(format string) string {
	if len(o.formats) == 1 && o.output != "" {
		return o.output
	}
	return basePath(o.output) + "." + format
}

func (c *CLI) runRender(ctx context.Context, cmd *cobra.Command, opts *renderOpts) error {
	env, err := c.newStrip(ctx, cmd.Flags(), &opts.strip)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.ctrl.Layout(ctx)
	if err != nil {
		return err
	}
	style := env.ctrl.Style()

	draw := []sink.DrawOption{sink.WithStyle(style)}
	if opts.labels {
		draw = append(draw, sink.WithLabels())
	}
	jsonOpts := []sink.JSONOption{sink.WithJSONStyle(style), sink.WithJSONIndent()}
	if cmd.Flags().Changed("offset-x") {
		offset := strip.Point{X: opts.offsetX}
		width := env.ctrl.Viewport().Width
		draw = append(draw, sink.WithViewport(offset, width))
		jsonOpts = append(jsonOpts, sink.WithJSONViewport(offset, width))
	}

	for _, format := range opts.formats {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := renderFormat(res, format, draw, jsonOpts, opts.scale)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		path := opts.outputPath(format)
		if err := writeOutput(path, data); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
	}

	printSuccess("Rendered %d items", res.Len())
	return nil
}

func renderFormat(res strip.Result, format string, draw []sink.DrawOption, jsonOpts []sink.JSONOption, scale float64) ([]byte, error) {
	switch format {
	case formatSVG:
		return sink.RenderSVG(res, draw...), nil
	case formatPNG:
		return sink.RenderPNG(res, sink.WithPNGDrawOptions(draw...), sink.WithScale(scale))
	case formatJSON:
		return sink.RenderJSON(res, jsonOpts...)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
