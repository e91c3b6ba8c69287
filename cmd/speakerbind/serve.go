package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerbind/bootstrap"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /v1/jobs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			app, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}

			srv := server.New(cfg.Server, logger.GetGlobalLogger())
			srv.Register(server.NewHandler(app.Runner, cfg.Name, app.Dependencies()...))
			app.OnStop(srv.Stop)
			return app.Run(ctx, func(ctx context.Context) error {
				return srv.Start(ctx)
			})
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (default: server.port)")
	return cmd
}
