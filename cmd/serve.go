package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/ktweb-minutes/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), a.Config.Server.Port, a.Handler(), a.Logger)
		},
	}
}
