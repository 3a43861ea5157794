package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"modelgate/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				if port <= 0 || port > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", port)
				}
				a.cfg.Server.Port = port
			}

			rt, err := a.router(cmd.Context())
			if err != nil {
				return err
			}

			srv, err := server.New(a.cfg, rt)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server port from configuration")
	return cmd
}
