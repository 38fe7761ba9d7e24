package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/templhead/internal/logging"
)

var renderFlags *StandardFlags

var renderCmd = &cobra.Command{
	Use:     "render [files...]",
	Aliases: []string{"r"},
	Short:   "Print the server-rendered head of declaration files",
	Long: `Render merges the declarations of every file, in order, and prints the
four fragments a server writes into a page: the head tags, the html and body
attributes, and the tags placed at the end of body.

Examples:
  templhead render site.yml page.yml
  templhead render -o json site.yml`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderFlags = AddStandardFlags(renderCmd, "output")
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := renderFlags.ValidateFlags(); err != nil {
		return err
	}

	cfg, logger, h, err := setup(cmd)
	if err != nil {
		return err
	}
	files, err := declarationFiles(cfg, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	op := logging.StartOperation(logger, "render")
	if _, err := loadHead(ctx, h, logger, files); err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	out, err := h.RenderToString(ctx)
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	op.End(ctx, "files", len(files))

	if renderFlags.OutputFormat == FormatText {
		return writeSections(cmd.OutOrStdout(), headSections(out))
	}
	return writeValue(cmd.OutOrStdout(), renderFlags.OutputFormat, out)
}
