package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/conneroisu/templhead/internal/config"
	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/internal/renderer"
	"github.com/conneroisu/templhead/pkg/head"
)

var diffFlags *StandardFlags

var diffCmd = &cobra.Command{
	Use:     "diff <before> <after>",
	Aliases: []string{"d"},
	Short:   "Show how the rendered head changes between two declaration sets",
	Long: `Diff renders each argument on its own and prints a line diff of the
managed tags and attributes. Each argument is a declaration file, or several
joined with commas. It then reconciles a page rendered from the first set
with the second and reports how many elements a client update would insert,
remove and keep.

Examples:
  templhead diff site.yml site-next.yml
  templhead diff site.yml,home.yml site.yml,about.yml`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffFlags = AddStandardFlags(diffCmd, "output")
}

// diffResult is the structured output of diff.
type diffResult struct {
	Changed bool       `json:"changed" yaml:"changed"`
	Lines   []string   `json:"lines" yaml:"lines"`
	Report  reportView `json:"report" yaml:"report"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	if err := diffFlags.ValidateFlags(); err != nil {
		return err
	}

	cfg, logger, before, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if err := loadSet(ctx, before, logger, args[0]); err != nil {
		return err
	}
	after := head.New(
		head.WithLogger(logger),
		head.WithLegacyAliases(cfg.Render.LegacyAliases),
	)
	if err := loadSet(ctx, after, logger, args[1]); err != nil {
		return err
	}

	oldLines, err := tagLines(ctx, before)
	if err != nil {
		return err
	}
	newLines, err := tagLines(ctx, after)
	if err != nil {
		return err
	}
	lines := lineDiff(oldLines, newLines)

	report, err := reconcileAcross(ctx, before, after)
	if err != nil {
		return err
	}

	result := diffResult{
		Changed: oldLines != newLines,
		Lines:   lines,
		Report:  newReportView(report),
	}
	if diffFlags.OutputFormat != FormatText {
		return writeValue(cmd.OutOrStdout(), diffFlags.OutputFormat, result)
	}
	return writeDiff(cmd.OutOrStdout(), result, report, diffFlags.Quiet)
}

func loadSet(ctx context.Context, h *head.Head, logger logging.Logger, arg string) error {
	var files []string
	for _, f := range strings.Split(arg, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	files, err := declarationFiles(&config.Config{}, files)
	if err != nil {
		return err
	}
	_, err = loadHead(ctx, h, logger, files)
	return err
}

// tagLines renders one managed tag or attribute set per line.
func tagLines(ctx context.Context, h *head.Head) (string, error) {
	res, err := h.Resolve(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if res.Title != nil {
		b.WriteString(renderer.TagToString(res.Title) + "\n")
	}
	for _, t := range res.HeadTags() {
		b.WriteString(renderer.TagToString(t) + "\n")
	}
	if attrs := renderer.AttrsToString(res.HTMLAttrs); attrs != "" {
		b.WriteString("<html " + attrs + ">\n")
	}
	if attrs := renderer.AttrsToString(res.BodyAttrs); attrs != "" {
		b.WriteString("<body " + attrs + ">\n")
	}
	for _, t := range res.BodyTags() {
		b.WriteString(renderer.TagToString(t) + "\n")
	}
	return b.String(), nil
}

// lineDiff returns the lines of a unified-style diff, each prefixed with
// "+", "-" or " ".
func lineDiff(oldText, newText string) []string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out []string
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, prefix+" "+line)
		}
	}
	return out
}

// reconcileAcross renders a page from before and updates it with after.
func reconcileAcross(ctx context.Context, before, after *head.Head) (head.Report, error) {
	out, err := before.RenderToString(ctx)
	if err != nil {
		return head.Report{}, err
	}
	page := "<!DOCTYPE html><html " + out.HTMLAttrs + "><head>" + out.HeadTags +
		"</head><body " + out.BodyAttrs + ">" + out.BodyTags + "</body></html>"

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return head.Report{}, err
	}
	return after.UpdateDOM(ctx, doc)
}

func writeDiff(w io.Writer, result diffResult, report head.Report, quiet bool) error {
	if !result.Changed {
		if _, err := fmt.Fprintln(w, "No changes"); err != nil {
			return err
		}
	} else {
		for _, line := range result.Lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	if quiet {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeReport(w, report)
}
