// Package cmd provides the templhead command-line interface.
//
// Configuration is read from, highest priority first:
//  1. command-line flags (--config, --port, ...)
//  2. TEMPLHEAD_CONFIG_FILE, a path to the configuration file
//  3. TEMPLHEAD_<SECTION>_<OPTION> environment variables
//  4. .templhead.yml in the working directory
//
// Declaration files named on the command line replace input.files from the
// configuration.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/templhead/internal/config"
	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/loader"
	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/pkg/head"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "templhead",
	Short: "Render and reconcile document head metadata",
	Long: `templhead merges head declarations (title, meta, link, script, style,
html and body attributes) from YAML files into one consistent document head.

Quick Start:
  templhead render site.yml page.yml       Print the server-rendered head
  templhead apply --page index.html a.yml  Update an HTML document in place
  templhead diff before.yml after.yml      Show what changes between two sets
  templhead watch site.yml                 Re-render on every change
  templhead serve site.yml                 Preview with live head updates

Later files win when two declarations describe the same tag.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .templhead.yml, can also use TEMPLHEAD_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().Bool("no-legacy-aliases", false, "treat hid and vmid as ordinary attributes")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TEMPLHEAD_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".templhead")
	}

	viper.SetEnvPrefix("TEMPLHEAD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing file leaves defaults in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setup loads the configuration and builds the logger and Head shared by
// every command.
func setup(cmd *cobra.Command) (*config.Config, logging.Logger, *head.Head, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	if off, _ := cmd.Flags().GetBool("no-legacy-aliases"); off {
		cfg.Render.LegacyAliases = false
	}

	logger := newLogger(cfg, cmd)
	h := head.New(
		head.WithLogger(logger),
		head.WithLegacyAliases(cfg.Render.LegacyAliases),
	)
	return cfg, logger, h, nil
}

func newLogger(cfg *config.Config, cmd *cobra.Command) logging.Logger {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Log.Level)
	lc.Format = cfg.Log.Format
	lc.Output = cmd.ErrOrStderr()
	lc.Component = "cli"
	return logging.NewLogger(lc)
}

// declarationFiles returns the files named on the command line, falling
// back to input.files.
func declarationFiles(cfg *config.Config, args []string) ([]string, error) {
	files := args
	if len(files) == 0 {
		files = cfg.Input.Files
	}
	if len(files) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed,
			"no declaration files given; pass them as arguments or set input.files")
	}
	for _, f := range files {
		if err := ValidateFileExists(f); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// loadHead registers the declarations of files with h.
func loadHead(ctx context.Context, h *head.Head, logger logging.Logger, files []string) (*loader.Loader, error) {
	l := loader.New(h, logger)
	if err := l.Load(ctx, files...); err != nil {
		return nil, err
	}
	return l, nil
}
