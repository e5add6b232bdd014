// Package config loads shelfsearch settings through Viper.
//
// Values come from a YAML file, SHELFSEARCH_ environment variables and
// command-line flags bound by the cmd package. Load applies defaults and
// validates the result; helpers turn the raw values into the types the
// search, source and logging packages expect.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/conneroisu/shelfsearch/internal/debounce"
	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/conneroisu/shelfsearch/internal/source"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 8090
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultWatchDebounce = 300 * time.Millisecond

	DefaultMaxConnectionsPerIP  = 10
	DefaultMaxMessagesPerMinute = 600
)

type Config struct {
	Search SearchConfig `mapstructure:"search"`
	Source SourceConfig `mapstructure:"source"`
	Server ServerConfig `mapstructure:"server"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Log    LogConfig    `mapstructure:"log"`
}

type SearchConfig struct {
	Delay time.Duration `mapstructure:"delay"`
	// DelayMs overrides Delay when set.
	DelayMs  float64 `mapstructure:"delay_ms"`
	NoHeader bool    `mapstructure:"no_header"`

	delayMsSet bool
}

type SourceConfig struct {
	Path     string   `mapstructure:"path"`
	Format   string   `mapstructure:"format"`
	Table    string   `mapstructure:"table"`
	Columns  []string `mapstructure:"columns"`
	Selector string   `mapstructure:"selector"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Zero disables the limit.
	MaxConnectionsPerIP  int `mapstructure:"max_connections_per_ip"`
	MaxMessagesPerMinute int `mapstructure:"max_messages_per_minute"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the global Viper instance and validates the result.
func Load() (*Config, error) {
	config, err := Decode()
	if err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.WrapConfig(err, "invalid configuration")
	}
	return config, nil
}

// Decode reads the global Viper instance and applies defaults without
// validating.
func Decode() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, "failed to decode configuration")
	}

	// comma separated lists from env vars or string flags arrive as one element
	if viper.IsSet("source.columns") {
		config.Source.Columns = splitList(viper.GetStringSlice("source.columns"))
	}
	if viper.IsSet("server.allowed_origins") {
		config.Server.AllowedOrigins = splitList(viper.GetStringSlice("server.allowed_origins"))
	}

	config.Search.delayMsSet = viper.IsSet("search.delay_ms")

	if !viper.IsSet("search.delay") {
		config.Search.Delay = debounce.DefaultDelay
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if !viper.IsSet("server.max_connections_per_ip") {
		config.Server.MaxConnectionsPerIP = DefaultMaxConnectionsPerIP
	}
	if !viper.IsSet("server.max_messages_per_minute") {
		config.Server.MaxMessagesPerMinute = DefaultMaxMessagesPerMinute
	}
	if !viper.IsSet("watch.enabled") {
		config.Watch.Enabled = true
	}
	if !viper.IsSet("watch.debounce") {
		config.Watch.Debounce = DefaultWatchDebounce
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}

	return &config, nil
}

// EnvPrefix prefixes every environment variable, e.g. SHELFSEARCH_SERVER_PORT.
const EnvPrefix = "SHELFSEARCH"

// EnvKeyReplacer maps nested keys to environment variable names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Keys lists every configuration key, for environment binding.
var Keys = []string{
	"search.delay", "search.delay_ms", "search.no_header",
	"source.path", "source.format", "source.table", "source.columns", "source.selector",
	"server.host", "server.port", "server.allowed_origins",
	"server.max_connections_per_ip", "server.max_messages_per_minute",
	"watch.enabled", "watch.debounce",
	"log.level", "log.format",
}

// BindEnv binds every key to its SHELFSEARCH_ variable so that Unmarshal
// sees values that only exist in the environment.
func BindEnv() error {
	for _, key := range Keys {
		if err := viper.BindEnv(key); err != nil {
			return errors.WrapConfig(err, "failed to bind environment for "+key)
		}
	}
	return nil
}

// SetDefaults registers defaults on the global Viper instance so that
// commands listing the effective configuration see them.
func SetDefaults() {
	viper.SetDefault("search.delay", debounce.DefaultDelay)
	viper.SetDefault("server.host", DefaultHost)
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("server.max_connections_per_ip", DefaultMaxConnectionsPerIP)
	viper.SetDefault("server.max_messages_per_minute", DefaultMaxMessagesPerMinute)
	viper.SetDefault("watch.enabled", true)
	viper.SetDefault("watch.debounce", DefaultWatchDebounce)
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.format", DefaultLogFormat)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// SearchDelay returns the debounce delay for search sessions. A configured
// delay_ms takes precedence over delay.
func (c *Config) SearchDelay() (time.Duration, error) {
	if c.Search.delayMsSet {
		d, err := debounce.FromMillis(c.Search.DelayMs)
		if err != nil {
			return 0, fmt.Errorf("search.delay_ms: %w", err)
		}
		return d, nil
	}
	if c.Search.Delay < 0 {
		return 0, errors.NewInvalidArgument("debounce delay must not be negative").
			WithContext("delay", c.Search.Delay.String())
	}
	return c.Search.Delay, nil
}

// SetDelayMs sets the millisecond delay as if it had been configured.
func (c *Config) SetDelayMs(ms float64) {
	c.Search.DelayMs = ms
	c.Search.delayMsSet = true
}

// SourceOptions converts the source section into loader options.
func (c *Config) SourceOptions() (source.Options, error) {
	format, err := source.ParseFormat(c.Source.Format)
	if err != nil {
		return source.Options{}, err
	}
	return source.Options{
		Path:     c.Source.Path,
		Format:   format,
		Table:    c.Source.Table,
		Selector: c.Source.Selector,
		Columns:  c.Source.Columns,
		NoHeader: c.Search.NoHeader,
	}, nil
}

// LoggerConfig converts the log section into logger settings.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = strings.ToLower(c.Log.Format)
	return cfg, nil
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
