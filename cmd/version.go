package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/templhead/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for templhead: version, commit, build
time, Go version and platform.

Examples:
  templhead version            # Show version details
  templhead version --short    # Show only the version
  templhead version -f json    # Output as JSON`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", FormatText, "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.Info()
	w := cmd.OutOrStdout()

	switch versionFormat {
	case FormatJSON, FormatYAML:
		return writeValue(w, versionFormat, info)
	case FormatText:
		if versionShort {
			_, err := fmt.Fprintln(w, info.Short())
			return err
		}
		buildType := "development"
		if info.IsRelease() {
			buildType = "release"
		}
		_, err := fmt.Fprintf(w, "templhead %s\n%s\nBuild type: %s\n", info.Short(), info, buildType)
		return err
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}
}
