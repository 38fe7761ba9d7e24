package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/templhead/pkg/head"
)

var titleCase = cases.Title(language.English)

// section is one labelled block of text output.
type section struct {
	name string
	body string
}

func headSections(out head.SSRHead) []section {
	return []section{
		{"head tags", out.HeadTags},
		{"html attributes", out.HTMLAttrs},
		{"body attributes", out.BodyAttrs},
		{"body tags", out.BodyTags},
	}
}

func writeSections(w io.Writer, sections []section) error {
	for i, s := range sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n%s\n", titleCase.String(s.name), s.body); err != nil {
			return err
		}
	}
	return nil
}

// writeValue encodes v as JSON or YAML.
func writeValue(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		// Keep markup readable.
		encoder.SetEscapeHTML(false)
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// reportView is the serialisable form of a reconciliation report.
type reportView struct {
	Inserted  int      `json:"inserted" yaml:"inserted"`
	Removed   int      `json:"removed" yaml:"removed"`
	Kept      int      `json:"kept" yaml:"kept"`
	HeadCount int      `json:"headCount" yaml:"headCount"`
	TagTypes  []string `json:"tagTypes,omitempty" yaml:"tagTypes,omitempty"`
	Skipped   bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func newReportView(r head.Report) reportView {
	return reportView{
		Inserted:  r.Inserted,
		Removed:   r.Removed,
		Kept:      r.Kept,
		HeadCount: r.HeadCount,
		TagTypes:  r.TagTypes,
		Skipped:   r.Skipped,
	}
}

func writeReport(w io.Writer, r head.Report) error {
	if r.Skipped {
		_, err := fmt.Fprintln(w, "Document update skipped by a hook")
		return err
	}
	_, err := fmt.Fprintf(w, "Inserted: %d  Removed: %d  Kept: %d  Head count: %d\n",
		r.Inserted, r.Removed, r.Kept, r.HeadCount)
	return err
}
