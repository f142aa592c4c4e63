package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagestrip/pkg/strip"
)

// centerCommand creates the center command, which prints where a scroll
// comes to rest.
func (c *CLI) centerCommand() *cobra.Command {
	var (
		opts   stripOpts
		offset strip.Point
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "center",
		Short: "Print the offset a scroll settles at",
		Long: `Print the scroll offset at which the strip comes to rest when a scroll
would end at --offset-x/--offset-y.

An expanded strip centers its focus item. A collapsed strip centers the
item whose center is nearest the viewport's center at the proposed offset.
The vertical offset passes through unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCenter(cmd.Context(), cmd, &opts, offset, asJSON)
		},
	}

	opts.bind(cmd.Flags())
	cmd.Flags().Float64Var(&offset.X, "offset-x", 0, "proposed horizontal offset")
	cmd.Flags().Float64Var(&offset.Y, "offset-y", 0, "proposed vertical offset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the offset as JSON")

	return cmd
}

func (c *CLI) runCenter(ctx context.Context, cmd *cobra.Command, opts *stripOpts, proposed strip.Point, asJSON bool) error {
	env, err := c.newStrip(ctx, cmd.Flags(), opts)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := env.ctrl.Settle(ctx, proposed)
	if err != nil {
		return err
	}

	if asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(p)
	}

	res, err := env.ctrl.Layout(ctx)
	if err != nil {
		return err
	}
	width := env.ctrl.Viewport().Width
	printKeyValue("offset", fmt.Sprintf("%s, %s", formatPoints(p.X), formatPoints(p.Y)))
	if i, ok := res.NearestCenterItem(p, width); ok {
		item := strconv.Itoa(i)
		if name := env.name(i); name != "" {
			item += " (" + name + ")"
		}
		printKeyValue("centered", item)
	}
	if p != proposed {
		printDetail("moved %s pt from the proposed offset", formatPoints(p.X-proposed.X))
	}
	return nil
}
