package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/templhead/internal/validation"
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

	write := func(title string, list []ValidationError) {
		if len(list) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, err := range list {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}
	write("❌ Validation Errors", vr.Errors)
	write("⚠️  Validation Warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// ValidateConfigWithDetails checks every section and collects all issues
// instead of stopping at the first.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServerConfig(&config.Server, result)
	validateInputConfig(&config.Input, result)
	validateWatchConfig(&config.Watch, result)
	validateLogConfig(&config.Log, result)

	return result
}

func validateServerConfig(config *ServerConfig, result *ValidationResult) {
	// Port 0 asks the system for a free port.
	if config.Port < 0 || config.Port > 65535 {
		result.fail("server.port", config.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port such as 8080")
	} else if config.Port > 0 && config.Port < 1024 {
		result.warn("server.port", config.Port, "ports below 1024 usually require elevated privileges")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			result.fail("server.host", config.Host,
				fmt.Sprintf("host contains dangerous character: %q", char),
				"Use a hostname or IP address such as localhost or 0.0.0.0")
			break
		}
	}

	if config.Page != "" && !isHTMLFile(config.Page) {
		result.fail("server.page", config.Page, "page template must be an .html file")
	}

	for _, origin := range config.AllowedOrigins {
		if _, err := validation.ValidateOrigin(origin); err != nil {
			result.fail("server.allowed_origins", origin,
				fmt.Sprintf("invalid origin %q: %v", origin, err),
				"Use the form http://localhost:3000")
		}
	}
}

func validateInputConfig(config *InputConfig, result *ValidationResult) {
	for _, path := range config.Files {
		if err := validation.ValidatePath(path); err != nil {
			result.fail("input.files", path, fmt.Sprintf("invalid declaration file '%s': %v", path, err))
			continue
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml", ".json":
		default:
			result.warn("input.files", path, "declaration files are read as YAML",
				"Use a .yml, .yaml or .json extension")
		}
	}
}

func validateWatchConfig(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.fail("watch.debounce", config.Debounce, "debounce cannot be negative")
	}
}

func validateLogConfig(config *LogConfig, result *ValidationResult) {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		result.fail("log.level", config.Level, fmt.Sprintf("unknown log level %q", config.Level),
			"Use one of debug, info, warn, error")
	}
	switch config.Format {
	case "text", "json":
	default:
		result.fail("log.format", config.Format, fmt.Sprintf("unknown log format %q", config.Format),
			"Use text or json")
	}
}

func isHTMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}
