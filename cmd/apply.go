package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/conneroisu/templhead/internal/errors"
)

var (
	applyFlags *StandardFlags
	applyWrite bool
)

var applyCmd = &cobra.Command{
	Use:     "apply --page index.html [files...]",
	Aliases: []string{"a"},
	Short:   "Reconcile an HTML document with declaration files",
	Long: `Apply parses an HTML document, updates its head, html and body the way
the browser side does on a client update, and prints the result. Elements the
document owns itself are left alone; only managed elements are replaced.

Examples:
  templhead apply --page index.html site.yml
  templhead apply --page index.html --write site.yml page.yml`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyFlags = AddStandardFlags(applyCmd, "page", "output")
	applyCmd.Flags().BoolVarP(&applyWrite, "write", "w", false, "write the result back to the page")
}

func runApply(cmd *cobra.Command, args []string) error {
	if err := applyFlags.ValidateFlags(); err != nil {
		return err
	}

	cfg, logger, h, err := setup(cmd)
	if err != nil {
		return err
	}
	page := cfg.Server.Page
	if page == "" {
		return errors.NewValidationError(errors.ErrCodeValidationFailed,
			"no page given; pass --page or set server.page")
	}
	files, err := declarationFiles(cfg, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := loadHead(ctx, h, logger, files); err != nil {
		return err
	}

	doc, err := parsePage(page)
	if err != nil {
		return err
	}
	report, err := h.UpdateDOM(ctx, doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if applyWrite {
		f, err := os.Create(page)
		if err != nil {
			return errors.NewIOError(errors.ErrCodeInternalError, "cannot write page", err).WithFile(page)
		}
		if err := renderAndClose(f, doc); err != nil {
			return errors.NewIOError(errors.ErrCodeInternalError, "cannot write page", err).WithFile(page)
		}
	} else if err := html.Render(out, doc); err != nil {
		return err
	}

	if applyFlags.Quiet {
		return nil
	}
	if applyFlags.OutputFormat != FormatText {
		return writeValue(cmd.ErrOrStderr(), applyFlags.OutputFormat, newReportView(report))
	}
	return writeReport(cmd.ErrOrStderr(), report)
}

// renderAndClose writes doc to w and closes it, reporting the first error.
func renderAndClose(w io.WriteCloser, doc *html.Node) error {
	if err := html.Render(w, doc); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func parsePage(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "cannot open page", err).WithFile(path)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeDocumentInvalid, err.Error()).WithFile(path)
	}
	return doc, nil
}
