package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/templhead/internal/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func() { viper.Reset() },
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Render.LegacyAliases)
				assert.Equal(t, DefaultHost, cfg.Server.Host)
				assert.Equal(t, DefaultPort, cfg.Server.Port)
				assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
				assert.Equal(t, "info", cfg.Log.Level)
				assert.Equal(t, "text", cfg.Log.Format)
				assert.Empty(t, cfg.Input.Files)
			},
		},
		{
			name: "explicit values",
			setup: func() {
				viper.Reset()
				viper.Set("render.legacy_aliases", false)
				viper.Set("input.files", []string{"a.yml", "b.yml"})
				viper.Set("server.host", "0.0.0.0")
				viper.Set("server.port", 3000)
				viper.Set("watch.debounce", "250ms")
				viper.Set("log.level", "debug")
				viper.Set("log.format", "json")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Render.LegacyAliases)
				assert.Equal(t, []string{"a.yml", "b.yml"}, cfg.Input.Files)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)
			},
		},
		{
			name: "port zero is kept",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", 0)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0, cfg.Server.Port)
			},
		},
		{
			name: "undecodable port",
			setup: func() {
				viper.Reset()
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "unknown log format",
			setup: func() {
				viper.Reset()
				viper.Set("log.format", "xml")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()
			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, cfg)
				assert.True(t, errors.IsConfigError(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".templhead.yml")
	content := `
render:
  legacy_aliases: false
input:
  files:
    - head/site.yml
server:
  port: 9090
  page: layout.html
watch:
  debounce: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	viper.Reset()
	defer viper.Reset()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Render.LegacyAliases)
	assert.Equal(t, []string{"head/site.yml"}, cfg.Input.Files)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "layout.html", cfg.Server.Page)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestValidateConfigWithDetails(t *testing.T) {
	tests := []struct {
		name         string
		config       Config
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:   "valid",
			config: validConfig(),
		},
		{
			name: "bad port and host",
			config: func() Config {
				c := validConfig()
				c.Server.Port = 70000
				c.Server.Host = "localhost;rm -rf"
				return c
			}(),
			wantErrors: []string{"server.port", "server.host"},
		},
		{
			name: "privileged port",
			config: func() Config {
				c := validConfig()
				c.Server.Port = 80
				return c
			}(),
			wantWarnings: []string{"server.port"},
		},
		{
			name: "inputs",
			config: func() Config {
				c := validConfig()
				c.Input.Files = []string{"", "head.txt", "head.yml"}
				return c
			}(),
			wantErrors:   []string{"input.files"},
			wantWarnings: []string{"input.files"},
		},
		{
			name: "origins and page",
			config: func() Config {
				c := validConfig()
				c.Server.AllowedOrigins = []string{"localhost:3000"}
				c.Server.Page = "layout.templ"
				return c
			}(),
			wantErrors: []string{"server.page", "server.allowed_origins"},
		},
		{
			name: "log and watch",
			config: func() Config {
				c := validConfig()
				c.Log.Level = "loud"
				c.Watch.Debounce = -time.Second
				return c
			}(),
			wantErrors: []string{"watch.debounce", "log.level"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateConfigWithDetails(&tt.config)
			assert.Equal(t, tt.wantErrors, fields(result.Errors))
			assert.Equal(t, tt.wantWarnings, fields(result.Warnings))
			if len(tt.wantErrors) > 0 {
				assert.Contains(t, result.String(), tt.wantErrors[0])
			}
		})
	}
}

func validConfig() Config {
	return Config{
		Render: RenderConfig{LegacyAliases: true},
		Server: ServerConfig{Host: "localhost", Port: 8080},
		Watch:  WatchConfig{Debounce: DefaultDebounce},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func fields(list []ValidationError) []string {
	var out []string
	for _, e := range list {
		out = append(out, e.Field)
	}
	return out
}
