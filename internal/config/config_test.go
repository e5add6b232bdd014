package config

import (
	"os"
	"testing"
	"time"

	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/conneroisu/shelfsearch/internal/source"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 300*time.Millisecond, config.Search.Delay)
	assert.False(t, config.Search.NoHeader)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8090, config.Server.Port)
	assert.Equal(t, 10, config.Server.MaxConnectionsPerIP)
	assert.Equal(t, 600, config.Server.MaxMessagesPerMinute)
	assert.True(t, config.Watch.Enabled)
	assert.Equal(t, 300*time.Millisecond, config.Watch.Debounce)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)

	delay, err := config.SearchDelay()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, delay)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "explicit values",
			setup: func() {
				viper.Set("search.delay", "150ms")
				viper.Set("source.path", "catalog/books.csv")
				viper.Set("source.columns", []string{"title", "author"})
				viper.Set("server.host", "0.0.0.0")
				viper.Set("server.port", 9000)
				viper.Set("watch.enabled", false)
				viper.Set("log.format", "json")
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 150*time.Millisecond, c.Search.Delay)
				assert.Equal(t, "catalog/books.csv", c.Source.Path)
				assert.Equal(t, []string{"title", "author"}, c.Source.Columns)
				assert.Equal(t, "0.0.0.0:9000", c.Address())
				assert.False(t, c.Watch.Enabled)
				assert.Equal(t, "json", c.Log.Format)
			},
		},
		{
			name: "comma separated lists",
			setup: func() {
				viper.Set("source.columns", "title, author ,isbn")
				viper.Set("server.allowed_origins", "https://library.example.org,catalog.local:8443")
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, []string{"title", "author", "isbn"}, c.Source.Columns)
				assert.Equal(t, []string{"https://library.example.org", "catalog.local:8443"}, c.Server.AllowedOrigins)
			},
		},
		{
			name: "delay_ms wins over delay",
			setup: func() {
				viper.Set("search.delay", "1s")
				viper.Set("search.delay_ms", 250.5)
			},
			check: func(t *testing.T, c *Config) {
				d, err := c.SearchDelay()
				require.NoError(t, err)
				assert.Equal(t, 250500*time.Microsecond, d)
			},
		},
		{
			name: "port zero is allowed",
			setup: func() {
				viper.Set("server.port", 0)
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 0, c.Server.Port)
			},
		},
		{
			name:        "invalid port type",
			setup:       func() { viper.Set("server.port", "invalid_port") },
			expectError: true,
		},
		{
			name:        "port out of range",
			setup:       func() { viper.Set("server.port", 70000) },
			expectError: true,
		},
		{
			name:        "negative delay",
			setup:       func() { viper.Set("search.delay", "-5ms") },
			expectError: true,
		},
		{
			name:        "negative delay_ms",
			setup:       func() { viper.Set("search.delay_ms", -1) },
			expectError: true,
		},
		{
			name:        "dangerous host",
			setup:       func() { viper.Set("server.host", "localhost;rm -rf") },
			expectError: true,
		},
		{
			name:        "unknown format",
			setup:       func() { viper.Set("source.format", "xlsx") },
			expectError: true,
		},
		{
			name:        "bad table name",
			setup:       func() { viper.Set("source.table", "books; drop") },
			expectError: true,
		},
		{
			name:        "unknown log level",
			setup:       func() { viper.Set("log.level", "chatty") },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			tt.setup()

			config, err := Load()

			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, config)
				assert.True(t, errors.IsConfigError(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			if tt.check != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("SHELFSEARCH_SEARCH_DELAY_MS", "120")
	t.Setenv("SHELFSEARCH_SOURCE_TABLE", "issues")
	t.Setenv("SHELFSEARCH_SERVER_PORT", "9999")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(EnvKeyReplacer())
	viper.AutomaticEnv()
	require.NoError(t, BindEnv())

	config, err := Load()
	require.NoError(t, err)

	d, err := config.SearchDelay()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Millisecond, d)
	assert.Equal(t, "issues", config.Source.Table)
	assert.Equal(t, 9999, config.Server.Port)
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	path := dir + "/.shelfsearch.yml"
	content := `search:
  delay: 400ms
  no_header: true
source:
  path: books.sqlite3
  table: books
server:
  allowed_origins:
    - https://library.example.org
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 400*time.Millisecond, config.Search.Delay)
	assert.True(t, config.Search.NoHeader)
	assert.Equal(t, []string{"https://library.example.org"}, config.Server.AllowedOrigins)

	opts, err := config.SourceOptions()
	require.NoError(t, err)
	assert.Equal(t, source.Options{
		Path:     "books.sqlite3",
		Format:   source.FormatAuto,
		Table:    "books",
		NoHeader: true,
	}, opts)

	logCfg, err := config.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.Equal(t, "text", logCfg.Format)
}

func TestSetDelayMs(t *testing.T) {
	c := &Config{Search: SearchConfig{Delay: time.Second}}
	c.SetDelayMs(75)
	d, err := c.SearchDelay()
	require.NoError(t, err)
	assert.Equal(t, 75*time.Millisecond, d)

	c.SetDelayMs(-3)
	_, err = c.SearchDelay()
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	assert.Equal(t, 8090, viper.GetInt("server.port"))
	assert.Equal(t, "localhost", viper.GetString("server.host"))
	assert.True(t, viper.GetBool("watch.enabled"))
}

func TestValidateConfigWithDetails(t *testing.T) {
	c := &Config{
		Search: SearchConfig{Delay: 10 * time.Millisecond},
		Source: SourceConfig{Format: "sqlite"},
		Server: ServerConfig{
			Host:                 "localhost",
			Port:                 80,
			AllowedOrigins:       []string{"*", "ftp://x"},
			MaxConnectionsPerIP:  -1,
			MaxMessagesPerMinute: 0,
		},
		Watch:  WatchConfig{Debounce: -time.Second},
		Log:    LogConfig{Level: "info", Format: "xml"},
	}

	result := ValidateConfigWithDetails(c)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors())
	assert.True(t, result.HasWarnings())

	fields := map[string]bool{}
	for _, e := range result.Errors {
		fields[e.Field] = true
	}
	assert.True(t, fields["server.allowed_origins"])
	assert.True(t, fields["server.max_connections_per_ip"])
	assert.False(t, fields["server.max_messages_per_minute"], "zero disables the limit")
	assert.True(t, fields["watch.debounce"])
	assert.True(t, fields["log.format"])

	warned := map[string]bool{}
	for _, w := range result.Warnings {
		warned[w.Field] = true
	}
	assert.True(t, warned["search.delay"])
	assert.True(t, warned["source.table"])
	assert.True(t, warned["server.port"])

	out := result.String()
	assert.Contains(t, out, "Validation errors:")
	assert.Contains(t, out, "Validation warnings:")
	assert.Contains(t, out, "log.format")
}

func TestValidateHostname(t *testing.T) {
	valid := []string{"localhost", "127.0.0.1", "::1", "0.0.0.0", "library.example.org"}
	for _, h := range valid {
		assert.NoError(t, validateHostname(h), h)
	}

	invalid := []string{"host;ls", "$(id)", "a b", "-bad.example"}
	for _, h := range invalid {
		assert.Error(t, validateHostname(h), h)
	}
}
