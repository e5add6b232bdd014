package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/conneroisu/shelfsearch/internal/config"
	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var outputFormats = []string{OutputTable, OutputJSON, OutputYAML}

// flagBindings maps flag names to configuration keys. Bindings are applied
// to the command being run, so the same flag name can live on several
// commands.
var flagBindings = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"source":          "source.path",
	"format":          "source.format",
	"table":           "source.table",
	"columns":         "source.columns",
	"selector":        "source.selector",
	"no-header":       "search.no_header",
	"delay":           "search.delay",
	"delay-ms":        "search.delay_ms",
	"host":            "server.host",
	"port":            "server.port",
	"allowed-origins": "server.allowed_origins",
	"watch":           "watch.enabled",
	"watch-debounce":  "watch.debounce",
}

// bindFlags binds every known flag of cmd to its configuration key.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagBindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// sourceFlags describes where rows come from and how edits are debounced.
func sourceFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("source", pflag.ContinueOnError)
	fs.StringP("source", "s", "", "Catalog file (.yaml, .json, .csv, .html, .db)")
	fs.StringP("format", "f", "", "Source format, detected from the extension when empty")
	fs.StringP("table", "t", "", "Table to read from a SQLite database")
	fs.StringSliceP("columns", "c", nil, "Columns to keep, in order")
	fs.String("selector", "", "Id of the table to read from an HTML page (#books)")
	fs.Bool("no-header", false, "Treat the first record as data")
	fs.Duration("delay", debounce.DefaultDelay, "Quiet period before a query edit is applied")
	fs.Float64("delay-ms", 0, "Quiet period in milliseconds; overrides --delay")
	return fs
}

// serverFlags configures the HTTP listener.
func serverFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.String("host", config.DefaultHost, "Host to bind to")
	fs.IntP("port", "p", config.DefaultPort, "Port to serve on")
	fs.StringSlice("allowed-origins", nil, "Extra origins allowed to open a WebSocket")
	fs.Bool("watch", true, "Reload the catalog when the source file changes")
	fs.Duration("watch-debounce", config.DefaultWatchDebounce, "Quiet period before a file change triggers a reload")
	return fs
}

// addOutputFlag adds --output and rejects unknown formats while parsing.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", OutputTable, "Output format ("+strings.Join(outputFormats, "|")+")")
	AddFlagValidation(cmd, "output", ValidateOutputFormat)
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateOutputFormat accepts table, json and yaml.
func ValidateOutputFormat(format string) error {
	for _, f := range outputFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		format, strings.Join(outputFormats, ", "))
}

// ValidatePort checks a port given on the command line.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateFileExists accepts an empty name or an existing file.
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}
