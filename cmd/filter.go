package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/conneroisu/shelfsearch/internal/livesearch"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/conneroisu/shelfsearch/internal/source"
	"github.com/spf13/cobra"
)

type filterOptions struct {
	output string
	stdin  bool
}

func newFilterCommand() *cobra.Command {
	opts := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter [query]",
		Short: "Print the rows of a catalog that match a query",
		Long: `Filter a catalog once and print the header plus the matching rows.

A row matches when its text contains the query, ignoring case. An empty query
matches every row.

With --stdin every line read is treated as an edit of the query, as if typed
into a search box: lines arriving faster than the delay collapse into one
result, and the last edit is applied at end of input.

Examples:
  shelfsearch filter -s books.csv fowler
  shelfsearch filter -s library.db -t members -o json smith
  tail -f queries.log | shelfsearch filter -s books.yaml --stdin --delay-ms 250`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args, opts)
		},
	}

	cmd.Flags().AddFlagSet(sourceFlags())
	addOutputFlag(cmd, &opts.output)
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Read query edits from standard input, one per line")

	return cmd
}

func runFilter(cmd *cobra.Command, args []string, opts *filterOptions) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	srcOpts, err := cfg.SourceOptions()
	if err != nil {
		return err
	}

	table, err := source.Load(cmd.Context(), srcOpts)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	catalog := livesearch.NewCatalog(table)
	out := cmd.OutOrStdout()

	if !opts.stdin {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return writeResult(out, opts.output, catalog.Search(query))
	}

	delay, err := cfg.SearchDelay()
	if err != nil {
		return err
	}
	return filterStream(cmd.Context(), cmd.InOrStdin(), out, catalog, delay, opts.output, logger)
}

// filterStream feeds each input line to a live search session and prints
// every result the session produces.
func filterStream(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	catalog *livesearch.Catalog,
	delay time.Duration,
	format string,
	logger logging.Logger,
) error {
	var (
		mu       sync.Mutex
		writeErr error
	)
	sink := func(res livesearch.Result) {
		mu.Lock()
		defer mu.Unlock()
		if writeErr == nil {
			writeErr = writeResult(out, format, res)
		}
	}

	session, err := livesearch.New(catalog, delay, sink,
		livesearch.WithLogger(logger), livesearch.WithID("stdin"))
	if err != nil {
		return err
	}
	defer session.Close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		session.Input(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}
	// the timer may already have taken the last edit
	if !session.Flush() {
		session.Wait()
	}

	mu.Lock()
	defer mu.Unlock()
	return writeErr
}
