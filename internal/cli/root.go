package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pagestrip/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
// Configuration is loaded before any subcommand runs; the logger travels to
// the commands through the command context.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Pagestrip lays out focus-expanding thumbnail strips",
		Long: `Pagestrip computes the layout of a horizontal thumbnail strip in which one
item can be expanded to its aspect ratio while the others stay compact.

It prints frames as tables or JSON, renders them as SVG or PNG, explores a
strip interactively, and serves the layout engine over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/pagestrip/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.centerCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
