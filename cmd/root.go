// Package cmd provides the shelfsearch command-line interface.
//
// Configuration System:
//
//	Settings are resolved with the usual precedence:
//	1. Command-line flags (--source, --delay-ms, --port, ...) - highest priority
//	2. Environment variables (SHELFSEARCH_SEARCH_DELAY_MS, SHELFSEARCH_SERVER_PORT, ...)
//	3. The configuration file: --config, then SHELFSEARCH_CONFIG_FILE, then
//	   .shelfsearch.yml in the working directory
//	4. Built-in defaults - lowest priority
package cmd

import (
	"fmt"
	"os"

	"github.com/conneroisu/shelfsearch/internal/config"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "shelfsearch",
		Short: "Live search over library catalog tables",
		Long: `shelfsearch filters the rows of a catalog table (books, members, issues,
fines) as you type. Edits are debounced: the table is filtered once the input
has been quiet for the configured delay.

Sources: YAML, JSON, CSV, saved HTML pages and SQLite databases.

Quick Start:
  shelfsearch filter -s books.csv martin     Print the rows matching "martin"
  shelfsearch browse -s library.db -t books  Interactive search in the terminal
  shelfsearch serve -s books.yaml            Live search over WebSocket`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig(cfgFile)
			return bindFlags(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .shelfsearch.yml, can also use SHELFSEARCH_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")

	rootCmd.AddCommand(
		newFilterCommand(),
		newBrowseCommand(),
		newServeCommand(),
		newTablesCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command line.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(root.ErrOrStderr(), "Hint:", hint)
	}
	return err
}

// initConfig points Viper at the configuration file and the environment.
func initConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".shelfsearch")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()
	if err := config.BindEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	config.SetDefaults()

	// A missing file is fine; defaults and the environment still apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Warning: reading config file:", err)
	}
}

// loadConfig resolves the configuration and builds the logger for a command.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logger: %w", err)
	}
	lc.Output = os.Stderr
	return cfg, logging.NewLogger(lc), nil
}
