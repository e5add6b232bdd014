package cmd

import (
	"fmt"

	"github.com/conneroisu/shelfsearch/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect shelfsearch configuration",
		Long: `Show or validate the configuration resolved from the config file, the
SHELFSEARCH_* environment variables and the defaults.

Examples:
  shelfsearch config show
  shelfsearch config show -o json
  shelfsearch config validate --strict`,
	}
	configCmd.AddCommand(newConfigShowCommand(), newConfigValidateCommand())
	return configCmd
}

// resolvedConfig is the printable form of config.Config.
type resolvedConfig struct {
	Search struct {
		Delay    string `json:"delay" yaml:"delay"`
		NoHeader bool   `json:"no_header" yaml:"no_header"`
	} `json:"search" yaml:"search"`
	Source struct {
		Path     string   `json:"path" yaml:"path"`
		Format   string   `json:"format" yaml:"format"`
		Table    string   `json:"table,omitempty" yaml:"table,omitempty"`
		Columns  []string `json:"columns,omitempty" yaml:"columns,omitempty"`
		Selector string   `json:"selector,omitempty" yaml:"selector,omitempty"`
	} `json:"source" yaml:"source"`
	Server struct {
		Host           string   `json:"host" yaml:"host"`
		Port           int      `json:"port" yaml:"port"`
		AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
		MaxConnections int      `json:"max_connections_per_ip" yaml:"max_connections_per_ip"`
		MaxMessages    int      `json:"max_messages_per_minute" yaml:"max_messages_per_minute"`
	} `json:"server" yaml:"server"`
	Watch struct {
		Enabled  bool   `json:"enabled" yaml:"enabled"`
		Debounce string `json:"debounce" yaml:"debounce"`
	} `json:"watch" yaml:"watch"`
	Log struct {
		Level  string `json:"level" yaml:"level"`
		Format string `json:"format" yaml:"format"`
	} `json:"log" yaml:"log"`
}

func resolve(cfg *config.Config) (resolvedConfig, error) {
	var r resolvedConfig
	delay, err := cfg.SearchDelay()
	if err != nil {
		return r, err
	}
	r.Search.Delay = delay.String()
	r.Search.NoHeader = cfg.Search.NoHeader
	r.Source.Path = cfg.Source.Path
	r.Source.Format = cfg.Source.Format
	if r.Source.Format == "" {
		r.Source.Format = "auto"
	}
	r.Source.Table = cfg.Source.Table
	r.Source.Columns = cfg.Source.Columns
	r.Source.Selector = cfg.Source.Selector
	r.Server.Host = cfg.Server.Host
	r.Server.Port = cfg.Server.Port
	r.Server.AllowedOrigins = cfg.Server.AllowedOrigins
	r.Server.MaxConnections = cfg.Server.MaxConnectionsPerIP
	r.Server.MaxMessages = cfg.Server.MaxMessagesPerMinute
	r.Watch.Enabled = cfg.Watch.Enabled
	r.Watch.Debounce = cfg.Watch.Debounce.String()
	r.Log.Level = cfg.Log.Level
	r.Log.Format = cfg.Log.Format
	return r, nil
}

func newConfigShowCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			r, err := resolve(cfg)
			if err != nil {
				return err
			}
			if output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			return writeYAML(cmd.OutOrStdout(), r)
		},
	}

	cmd.Flags().AddFlagSet(sourceFlags())
	cmd.Flags().AddFlagSet(serverFlags())
	cmd.Flags().StringVarP(&output, "output", "o", OutputYAML, "Output format (yaml|json)")

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors and warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Decode()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := config.ValidateConfigWithDetails(cfg)
			if !result.HasErrors() && !result.HasWarnings() {
				fmt.Fprintln(out, "Configuration is valid.")
				return nil
			}

			fmt.Fprint(out, result.String())
			if result.HasErrors() {
				return fmt.Errorf("configuration validation failed with %d errors", len(result.Errors))
			}
			if strict {
				return fmt.Errorf("configuration validation failed in strict mode with %d warnings",
					len(result.Warnings))
			}
			fmt.Fprintf(out, "Configuration is valid with %d warnings. Use --strict to treat warnings as errors.\n",
				len(result.Warnings))
			return nil
		},
	}

	cmd.Flags().AddFlagSet(sourceFlags())
	cmd.Flags().AddFlagSet(serverFlags())
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}
