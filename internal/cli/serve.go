package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagestrip/internal/server"
)

type serveOpts struct {
	addr    string
	origins []string
	logFile string
}

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout engine over HTTP",
		Long: `Serve the layout engine over HTTP.

Stateless endpoints (POST /v1/layout, POST /v1/center) lay out a strip from
the request alone. Session endpoints (/v1/sessions) keep a strip's state in
the configured session store so clients can change it step by step, and
GET /v1/sessions/{id}/events streams every change over a websocket.

The session backend is selected in the [sessions] section of the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("addr") {
				opts.addr = c.cfg.Server.Addr
			}
			if !flags.Changed("allow-origin") {
				opts.origins = c.cfg.Server.AllowedOrigins
			}
			if !flags.Changed("log-file") {
				opts.logFile = c.cfg.Server.Log.File
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringSliceVar(&opts.origins, "allow-origin", nil, "host pattern allowed to open event streams from a browser (repeatable)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file, rotated per [server.log]")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	if opts.logFile != "" {
		lc := c.cfg.Server.Log
		lc.File = opts.logFile
		defer teeToFile(logger, c.logOut, lc).Close()
	}

	engine, err := c.newEngine()
	if err != nil {
		return err
	}
	store, err := c.newSessionStore(ctx)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	logger.Info("starting server", "addr", opts.addr, "sessions", c.cfg.Sessions.Backend)
	srv := server.New(
		server.WithEngine(engine),
		server.WithStore(store),
		server.WithLogger(logger),
		server.WithSessionTTL(c.cfg.Server.SessionTTL.Duration),
		server.WithAllowedOrigins(opts.origins...),
	)
	if err := srv.Run(ctx, opts.addr); err != nil {
		return err
	}
	return ctx.Err()
}
