package cmd

import (
	"fmt"

	"github.com/conneroisu/shelfsearch/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTablesCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tables [database]",
		Short: "List the tables of a SQLite catalog",
		Long: `List the tables that can be passed to --table.

Examples:
  shelfsearch tables library.db
  shelfsearch tables -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ValidateOutputFormat(output); err != nil {
				return err
			}
			path := viper.GetString("source.path")
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no database given: pass a path or --source")
			}
			if err := ValidateFileExists(path); err != nil {
				return err
			}

			tables, err := source.ListTables(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("listing tables: %w", err)
			}

			out := cmd.OutOrStdout()
			switch output {
			case OutputJSON:
				return writeJSON(out, tables)
			case OutputYAML:
				return writeYAML(out, tables)
			}
			for _, t := range tables {
				if _, err := fmt.Fprintln(out, t); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("source", "s", "", "SQLite database")
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "Output format (table|json|yaml)")

	return cmd
}
