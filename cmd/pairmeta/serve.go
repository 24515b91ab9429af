package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"

	"github.com/genobase/pairmeta/internal/iodb"
	"github.com/genobase/pairmeta/internal/iohttp"
	"github.com/genobase/pairmeta/internal/iorank"
	"github.com/genobase/pairmeta/pkg/config"
)

// getServeCmd returns the serve command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getServeCmd() *cobra.Command {
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		Long: `Run the read-side HTTP API. It exposes:

  GET  /pairs/top                  the filtered pair ranking
  POST /pairs/{pair_key}/review    append an analyst verdict
  GET  /pairs/{pair_key}/reviews   list a pair's verdicts
  GET  /healthz                    liveness probe
  GET  /metrics                    Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  pairmeta serve
  pairmeta serve --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runServe(cmd, port)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	serveCmd.Flags().IntVarP(&port, "port", "p", 0,
		"port override for the query API")

	return serveCmd
}

func runServe(cmd *cobra.Command, port int) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	if cmd.Flags().Changed("port") {
		cfg.Update([]config.Option{config.OptHTTPPort(port)})
	}

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	gn.Info("Connected to database: <em>%s@%s:%d/%s</em>",
		cfg.Database.User, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Database)

	srv := iohttp.New(cfg, iorank.New(cfg, op), iorank.NewReviewStore(op))
	return srv.Run(ctx)
}
