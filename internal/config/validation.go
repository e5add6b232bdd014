package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/conneroisu/shelfsearch/internal/errors"
	"github.com/conneroisu/shelfsearch/internal/logging"
	"github.com/conneroisu/shelfsearch/internal/source"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("      hint: %s\n", suggestion))
			}
		}
	}

	if len(vr.Warnings) > 0 {
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("      hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// validateConfig returns the first validation error, if any.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if !result.HasErrors() {
		return nil
	}
	first := result.Errors[0]
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, first.Message).
		WithContext("field", first.Field)
}

// ValidateConfigWithDetails checks every section and collects all problems.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateSearchConfigDetails(config, result)
	validateSourceConfigDetails(&config.Source, result)
	validateServerConfigDetails(&config.Server, result)
	validateWatchConfigDetails(&config.Watch, result)
	validateLogConfigDetails(&config.Log, result)

	result.Valid = !result.HasErrors()

	return result
}

func validateSearchConfigDetails(config *Config, result *ValidationResult) {
	if config.Search.delayMsSet {
		if _, err := config.SearchDelay(); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "search.delay_ms",
				Value:   config.Search.DelayMs,
				Message: "delay must be a finite, non-negative number of milliseconds",
				Suggestions: []string{
					"Use 300 for the usual search-as-you-type feel",
					"Use 0 to filter on every keystroke",
				},
			})
		}
		return
	}

	if config.Search.Delay < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "search.delay",
			Value:       config.Search.Delay,
			Message:     "delay must not be negative",
			Suggestions: []string{"Use a duration such as 300ms"},
		})
	} else if config.Search.Delay > 0 && config.Search.Delay < 50*time.Millisecond {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "search.delay",
			Value:   config.Search.Delay,
			Message: "very short delays filter on almost every keystroke",
		})
	}
}

func validateSourceConfigDetails(config *SourceConfig, result *ValidationResult) {
	format, err := source.ParseFormat(config.Format)
	if err != nil {
		names := make([]string, len(source.Formats))
		for i, f := range source.Formats {
			names[i] = string(f)
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:       "source.format",
			Value:       config.Format,
			Message:     fmt.Sprintf("unsupported format %q", config.Format),
			Suggestions: []string{"Supported formats: " + strings.Join(names, ", ")},
		})
	}

	if strings.ContainsRune(config.Path, 0) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "source.path",
			Value:   config.Path,
			Message: "path contains a NUL byte",
		})
	}

	if config.Table != "" && !tableNamePattern.MatchString(config.Table) {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "source.table",
			Value:       config.Table,
			Message:     "table name must be a plain SQL identifier",
			Suggestions: []string{"Examples: books, issues, fines"},
		})
	}

	if format == source.FormatSQLite && config.Table == "" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "source.table",
			Message: "SQLite sources need a table; pass --table",
		})
	}
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateServerConfigDetails(config *ServerConfig, result *ValidationResult) {
	// port 0 lets the system pick one
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local use",
					"Use '0.0.0.0' to bind to all interfaces",
				},
			})
		}
	}

	if config.MaxConnectionsPerIP < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "server.max_connections_per_ip",
			Value:       config.MaxConnectionsPerIP,
			Message:     "connection limit must not be negative",
			Suggestions: []string{"Use 0 to disable the limit"},
		})
	}
	if config.MaxMessagesPerMinute < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "server.max_messages_per_minute",
			Value:       config.MaxMessagesPerMinute,
			Message:     "message rate limit must not be negative",
			Suggestions: []string{"Use 0 to disable the limit"},
		})
	}

	for _, origin := range config.AllowedOrigins {
		if strings.Contains(origin, "://") {
			u, err := url.Parse(origin)
			if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
				result.Errors = append(result.Errors, ValidationError{
					Field:       "server.allowed_origins",
					Value:       origin,
					Message:     fmt.Sprintf("invalid origin %q", origin),
					Suggestions: []string{"Use https://host[:port] or host[:port]"},
				})
			}
			continue
		}
		if origin == "*" {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   "server.allowed_origins",
				Value:   origin,
				Message: "wildcards are not supported and match nothing",
			})
		}
	}
}

func validateWatchConfigDetails(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Debounce,
			Message: "debounce must not be negative",
		})
	}
}

func validateLogConfigDetails(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.level",
			Value:       config.Level,
			Message:     fmt.Sprintf("unknown log level %q", config.Level),
			Suggestions: []string{"Use debug, info, warn or error"},
		})
	}

	switch strings.ToLower(config.Format) {
	case "text", "json":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.format",
			Value:       config.Format,
			Message:     fmt.Sprintf("unknown log format %q", config.Format),
			Suggestions: []string{"Use text or json"},
		})
	}
}

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnamePattern.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
