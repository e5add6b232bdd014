package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/conneroisu/shelfsearch/internal/source"
	"github.com/conneroisu/shelfsearch/internal/tui"
	"github.com/spf13/cobra"
)

func newBrowseCommand() *cobra.Command {
	var inline bool

	cmd := &cobra.Command{
		Use:     "browse",
		Aliases: []string{"b"},
		Short:   "Search a catalog interactively in the terminal",
		Long: `Open a search box above the catalog table. The table is filtered once
typing pauses for the configured delay.

Keys:
  enter   apply the query now
  esc     clear the query, or quit when it is already empty
  ctrl+c  quit

Examples:
  shelfsearch browse -s books.yaml
  shelfsearch browse -s library.db -t issues --delay-ms 150`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			srcOpts, err := cfg.SourceOptions()
			if err != nil {
				return err
			}
			delay, err := cfg.SearchDelay()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			table, err := source.Load(ctx, srcOpts)
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}

			title := "shelfsearch"
			if table.Name != "" {
				title += "  " + filepath.Base(table.Name)
			}

			// log lines would tear the screen apart
			return tui.Run(ctx, livesearch.NewCatalog(table), tui.Options{
				Title:     title,
				Delay:     delay,
				Logger:    logging.Nop(),
				Input:     cmd.InOrStdin(),
				Output:    cmd.OutOrStdout(),
				AltScreen: !inline,
			})
		},
	}

	cmd.Flags().AddFlagSet(sourceFlags())
	cmd.Flags().BoolVar(&inline, "inline", false, "Draw below the prompt instead of using the alternate screen")

	return cmd
}
