package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/shelfsearch/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve live search over WebSocket",
		Long: `Start an HTTP server with a live search endpoint.

Each page opens a WebSocket on /ws and sends {"type":"query","query":"..."}
as the user types. Every connection is debounced on its own; results come
back as {"type":"results",...}. When the catalog file changes it is reloaded
and every page is told to refresh. /healthz reports the catalog size.

Examples:
  shelfsearch serve -s books.yaml
  shelfsearch serve -s library.db -t books --port 9000 --allowed-origins https://library.example.org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, server.WithLogger(logger))
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}

	cmd.Flags().AddFlagSet(sourceFlags())
	cmd.Flags().AddFlagSet(serverFlags())
	AddFlagValidation(cmd, "port", ValidatePort)

	return cmd
}
