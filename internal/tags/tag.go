// Package tags turns resolved head declarations into an ordered, deduplicated
// list of tag records.
//
// The pipeline pieces live in separate files: Expand flattens one
// declaration, Dedupe collapses tags sharing an identity, ApplyTitleTemplate
// composes the final title and SortByPriority orders the survivors. Each
// piece is a pure function over []*Tag so callers (and hooks) can inspect or
// rewrite the list between stages.
package tags

import (
	"fmt"
	"sort"
	"strconv"
)

// Input is a head declaration keyed by the declaration schema: title,
// titleTemplate, base, meta, link, style, script, noscript, htmlAttrs and
// bodyAttrs. Other keys are ignored.
type Input map[string]any

// Attrs is one element of a sequence field (a meta, a link, ...).
type Attrs map[string]any

// TemplateFunc computes the final title from the declared one. The argument
// is nil when no title was declared; a nil result removes the title tag.
type TemplateFunc func(title *string) *string

// Name identifies a tag type.
type Name string

const (
	NameTitle     Name = "title"
	NameMeta      Name = "meta"
	NameLink      Name = "link"
	NameBase      Name = "base"
	NameStyle     Name = "style"
	NameScript    Name = "script"
	NameNoscript  Name = "noscript"
	NameHTMLAttrs Name = "htmlAttrs"
	NameBodyAttrs Name = "bodyAttrs"
)

// SelfClosing reports whether the tag renders without a closing tag.
func (n Name) SelfClosing() bool {
	switch n {
	case NameMeta, NameLink, NameBase:
		return true
	}
	return false
}

// IsAttrs reports whether the tag carries html or body attributes rather
// than an element.
func (n Name) IsAttrs() bool {
	return n == NameHTMLAttrs || n == NameBodyAttrs
}

// Options are the control settings lifted out of a tag's props.
type Options struct {
	// Body places the tag at the end of <body>.
	Body bool
	// Raw disables sanitisation; set for tags of raw entries.
	Raw bool
	// RenderPriority overrides the tag type's default sort weight.
	RenderPriority *float64
}

// Tag is a single element produced from an entry.
type Tag struct {
	Name Name
	// Props maps attribute names to string, true or false values.
	Props map[string]any
	// Children is the text content.
	Children string
	// InnerHTML is markup content. Only raw tags keep it.
	InnerHTML string
	// Key is the explicit dedupe key, if the declaration had one.
	Key     string
	Options Options

	OriginEntryID  int
	OriginPosition int
}

// Source is a resolved declaration and the entry it came from.
type Source struct {
	EntryID int
	Input   Input
	Raw     bool
}

// Clone returns a copy of t whose props can be modified independently.
func (t *Tag) Clone() *Tag {
	c := *t
	c.Props = make(map[string]any, len(t.Props))
	for k, v := range t.Props {
		c.Props[k] = v
	}
	if t.Options.RenderPriority != nil {
		p := *t.Options.RenderPriority
		c.Options.RenderPriority = &p
	}
	return &c
}

// Prop returns the string form of a prop and whether it is present. A false
// prop is absent; a true prop is present with an empty value.
func (t *Tag) Prop(name string) (string, bool) {
	v, ok := t.Props[name]
	if !ok {
		return "", false
	}
	switch pv := v.(type) {
	case bool:
		return "", pv
	case string:
		return pv, true
	case nil:
		return "", false
	default:
		return fmt.Sprint(pv), true
	}
}

// PropNames returns the names of present props in lexical order.
func (t *Tag) PropNames() []string {
	names := make([]string, 0, len(t.Props))
	for k := range t.Props {
		if _, ok := t.Prop(k); ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// String is used in logs and test failure output.
func (t *Tag) String() string {
	s := "<" + string(t.Name)
	for _, k := range t.PropNames() {
		v, _ := t.Prop(k)
		s += " " + k + "=" + strconv.Quote(v)
	}
	return s + ">"
}

// stringify converts a scalar prop value to its string form. Malformed
// values are rendered best-effort rather than rejected.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
