//go:build property

package config

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigurationProperties checks validation boundaries.
func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	valid := func(port int, delayMs int) *Config {
		return &Config{
			Search: SearchConfig{Delay: time.Duration(delayMs) * time.Millisecond},
			Server: ServerConfig{Host: "localhost", Port: port},
			Watch:  WatchConfig{Debounce: DefaultWatchDebounce},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	properties.Property("ports in range with non-negative delays validate", prop.ForAll(
		func(port int, delayMs int) bool {
			return validateConfig(valid(port, delayMs)) == nil
		},
		gen.IntRange(0, 65535), gen.IntRange(0, 10000),
	))

	properties.Property("ports out of range are rejected", prop.ForAll(
		func(port int) bool {
			return validateConfig(valid(port, 300)) != nil
		},
		gen.OneGenOf(gen.IntRange(-100000, -1), gen.IntRange(65536, 1000000)),
	))

	properties.Property("negative millisecond delays are rejected", prop.ForAll(
		func(ms float64) bool {
			c := valid(8090, 300)
			c.SetDelayMs(ms)
			return validateConfig(c) != nil
		},
		gen.Float64Range(-1e9, -0.001),
	))

	properties.TestingRun(t)
}
