// Package config loads templhead configuration through Viper from
// .templhead.yml, TEMPLHEAD_* environment variables and command-line flags.
//
// Load applies defaults for everything left unset and validates the result;
// an invalid configuration is a config error that stops the command before
// any declaration is read.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/templhead/internal/errors"
)

type Config struct {
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Input  InputConfig  `yaml:"input" mapstructure:"input"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Watch  WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

type RenderConfig struct {
	// LegacyAliases rewrites hid and vmid to key.
	LegacyAliases bool `yaml:"legacy_aliases" mapstructure:"legacy_aliases"`
}

type InputConfig struct {
	// Files are declaration files registered in order when a command is
	// given no arguments.
	Files []string `yaml:"files" mapstructure:"files"`
}

type ServerConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	Page           string   `yaml:"page" mapstructure:"page"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Defaults.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 8080
	DefaultDebounce = 100 * time.Millisecond
	DefaultLevel    = "info"
	DefaultFormat   = "text"
)

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot decode configuration: %v", err))
	}

	if !viper.IsSet("render.legacy_aliases") {
		config.Render.LegacyAliases = true
	}

	// Slices set through flags or env arrive as strings.
	if viper.IsSet("input.files") && len(config.Input.Files) == 0 {
		config.Input.Files = viper.GetStringSlice("input.files")
	}
	if viper.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if !viper.IsSet("watch.debounce") {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultFormat
	}

	if result := ValidateConfigWithDetails(&config); result.HasErrors() {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"invalid configuration\n"+result.String())
	}

	return &config, nil
}
