package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagestrip/pkg/sink"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatSVG   = "svg"
	formatPNG   = "png"
)

// layoutCommand creates the layout command for computing strip frames.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		opts   stripOpts
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute the frames of a strip",
		Long: `Compute the frame of every item in a strip.

Items are laid out left to right. In collapsed style every item has the
collapsed width; with --focus one item is expanded to viewport height × its
aspect ratio, clamped to the configured bounds. Ratios come from --ratio,
--ratios or the images in --dir.

Examples:
  pagestrip layout -n 5
  pagestrip layout -n 5 --focus 2 --ratio 2
  pagestrip layout --dir ./photos --focus 0 -f json -o frames.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), cmd, &opts, format, output)
		},
	}

	opts.bind(cmd.Flags())
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, cmd *cobra.Command, opts *stripOpts, format, output string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("invalid format: %s (must be 'table' or 'json')", format)
	}

	env, err := c.newStrip(ctx, cmd.Flags(), opts)
	if err != nil {
		return err
	}
	defer env.Close()

	cached := env.ctrl.State().CachedExpandedWidth != nil
	res, err := env.ctrl.Layout(ctx)
	if err != nil {
		return err
	}
	style := env.ctrl.Style()

	if format == formatJSON {
		data, err := sink.RenderJSON(res, sink.WithJSONStyle(style), sink.WithJSONIndent())
		if err != nil {
			return err
		}
		return writeOutput(output, data)
	}

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	writeFrameTable(out, res, style, env.name)

	var expanded *float64
	if w, ok := res.ExpandedWidth(); ok {
		expanded = &w
	}
	printStripStats(res.Len(), res.ContentWidth(), expanded, cached)
	if env.lib != nil {
		if unknown := res.Len() - knownRatios(env); unknown > 0 {
			printWarning("%d images have no known aspect ratio", unknown)
		}
	}
	return nil
}

func knownRatios(env *stripEnv) int {
	n := 0
	for i := range env.lib.Len() {
		if _, ok := env.lib.AspectRatio(i); ok {
			n++
		}
	}
	return n
}

// writeFrameTable prints one row per item. name may return "" for items
// without a backing file.
func writeFrameTable(w io.Writer, res strip.Result, style strip.Style, name func(int) string) {
	focus, expanded := style.FocusIndex()
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, res.Len())
	for _, g := range res.Geometries() {
		marker := ""
		if expanded && g.Index == focus {
			marker = "▸"
		}
		rows = append(rows, []string{
			marker,
			strconv.Itoa(g.Index),
			formatPoints(g.X),
			formatPoints(g.Width),
			formatPoints(g.MaxX()),
			name(g.Index),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Item", "X", "Width", "Max X", "Image").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if expanded && row == focus {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	fmt.Fprintln(w, t.Render())
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if path != "" && path != "-" {
		printFile(path)
	}
	return nil
}
