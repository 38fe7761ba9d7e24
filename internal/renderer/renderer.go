// Package renderer serialises a render pass to HTML strings for initial
// page delivery.
//
// The output is byte-stable: attributes are written in lexical order and
// tags in the order of the pass, so rendering an unchanged registry twice
// yields identical strings. The head fragment ends with the count marker the
// DOM reconciler uses to find the managed elements on the client.
package renderer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/conneroisu/templhead/internal/engine"
	"github.com/conneroisu/templhead/internal/sanitize"
	"github.com/conneroisu/templhead/internal/tags"
)

// SSRHead holds the four fragments of a server-side render.
type SSRHead struct {
	HeadTags  string `json:"headTags" yaml:"headTags"`
	HTMLAttrs string `json:"htmlAttrs" yaml:"htmlAttrs"`
	BodyAttrs string `json:"bodyAttrs" yaml:"bodyAttrs"`
	BodyTags  string `json:"bodyTags" yaml:"bodyTags"`
}

// Render serialises res.
func Render(res *engine.Result) SSRHead {
	var head strings.Builder
	if res.Title != nil {
		head.WriteString(TagToString(res.Title))
	}
	headTags := res.HeadTags()
	for _, t := range headTags {
		head.WriteString(TagToString(t))
	}
	head.WriteString(CountMeta(len(headTags)))

	var body strings.Builder
	for _, t := range res.BodyTags() {
		body.WriteString(TagToString(t))
	}

	return SSRHead{
		HeadTags:  head.String(),
		HTMLAttrs: AttrsToString(res.HTMLAttrs),
		BodyAttrs: AttrsToString(res.BodyAttrs),
		BodyTags:  body.String(),
	}
}

// CountMeta renders the head count marker.
func CountMeta(n int) string {
	return `<meta name="` + tags.CountMetaName + `" content="` + strconv.Itoa(n) + `">`
}

// TagToString serialises one tag.
func TagToString(t *tags.Tag) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(string(t.Name))
	for _, name := range t.PropNames() {
		v, _ := t.Prop(name)
		writeAttr(&b, name, v, t.Props[name] == true, t.Options.Raw)
	}
	if t.Options.Body {
		b.WriteString(" " + tags.BodyMarkerAttr)
	}
	b.WriteByte('>')

	if t.Name.SelfClosing() {
		return b.String()
	}
	b.WriteString(Content(t))
	b.WriteString("</" + string(t.Name) + ">")
	return b.String()
}

// Content returns the serialised content of t.
func Content(t *tags.Tag) string {
	switch {
	case t.Options.Raw:
		if t.InnerHTML != "" {
			return t.InnerHTML
		}
		return t.Children
	case sanitize.IsJSONScript(t):
		return sanitize.EscapeScript(t.Children)
	default:
		return sanitize.EscapeHTML(t.Children)
	}
}

// AttrsToString serialises merged html or body attributes followed by the
// marker listing the written names. It returns "" for an empty set.
func AttrsToString(attrs map[string]any) string {
	values := make(map[string]any, len(attrs))
	names := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if b, ok := v.(bool); ok && !b {
			continue
		}
		// Parsers lowercase attribute names; the marker must match them.
		k = strings.ToLower(k)
		if _, dup := values[k]; !dup {
			names = append(names, k)
		}
		values[k] = v
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		v := values[name]
		s, _ := v.(string)
		writeAttr(&b, name, s, v == true, false)
	}
	b.WriteString(` ` + tags.AttrsMarkerAttr + `="` + strings.Join(names, ",") + `"`)
	return strings.TrimPrefix(b.String(), " ")
}

func writeAttr(b *strings.Builder, name, value string, bare, raw bool) {
	b.WriteByte(' ')
	b.WriteString(name)
	if bare {
		return
	}
	if !raw {
		value = sanitize.EscapeHTML(value)
	}
	b.WriteString(`="` + value + `"`)
}
