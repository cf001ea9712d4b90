package cli

import (
	"github.com/spf13/cobra"

	"github.com/bnema/dockmaster/internal/app"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Dockmaster API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}
