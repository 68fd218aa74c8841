package cli

import (
	"github.com/spf13/cobra"

	"github.com/packhouse/packhouse/internal/server"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog and session HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			srv, err := server.New(ctx, cfg, c.Logger)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the TOML config file")
	return cmd
}
