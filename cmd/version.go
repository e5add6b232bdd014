package cmd

import (
	"fmt"

	"github.com/conneroisu/shelfsearch/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	var (
		output   string
		short    bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the version, git commit, build time, Go version and platform.

Examples:
  shelfsearch version
  shelfsearch version --detailed
  shelfsearch version -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			info := version.Get()

			switch output {
			case OutputJSON:
				return writeJSON(out, info)
			case OutputYAML:
				return writeYAML(out, info)
			}

			switch {
			case short:
				fmt.Fprintln(out, version.Short())
			case detailed:
				fmt.Fprintln(out, info.Detailed())
			default:
				fmt.Fprintf(out, "shelfsearch %s\n", version.Short())
				fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
				fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			}
			return nil
		},
	}

	addOutputFlag(cmd, &output)
	cmd.Flags().BoolVar(&short, "short", false, "Show short version only")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show detailed version information")

	return cmd
}
