package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/taskdeck/taskdeck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		srv := server.New(a.svc, a.metrics, a.logger, a.cfg.ListenAddr)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Printf("listening on %s (db: %s)", a.cfg.ListenAddr, a.cfg.DBPath)
			return srv.Start(ctx)
		})
		return g.Wait()
	},
}
