package tags

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// fieldKind is the shape a declaration field expands from.
type fieldKind int

const (
	fieldUnknown fieldKind = iota
	// fieldText is a scalar whose value becomes the tag's text (title).
	fieldText
	// fieldElement is a single attribute mapping (base).
	fieldElement
	// fieldSequence is a sequence of attribute mappings (meta, link, ...).
	fieldSequence
	// fieldAttrs is an attribute mapping applied to <html> or <body>.
	fieldAttrs
	// fieldTemplate is consumed by the title template resolver.
	fieldTemplate
)

type field struct {
	key  string
	name Name
	kind fieldKind
}

// fieldOrder is the fixed order in which a declaration is expanded.
var fieldOrder = []field{
	{"title", NameTitle, fieldText},
	{"meta", NameMeta, fieldSequence},
	{"link", NameLink, fieldSequence},
	{"base", NameBase, fieldElement},
	{"style", NameStyle, fieldSequence},
	{"script", NameScript, fieldSequence},
	{"noscript", NameNoscript, fieldSequence},
	{"htmlAttrs", NameHTMLAttrs, fieldAttrs},
	{"bodyAttrs", NameBodyAttrs, fieldAttrs},
}

func classify(key string) fieldKind {
	if key == "titleTemplate" {
		return fieldTemplate
	}
	for _, f := range fieldOrder {
		if f.key == key {
			return f.kind
		}
	}
	return fieldUnknown
}

// UnknownFields lists the declaration keys Expand drops.
func UnknownFields(in Input) []string {
	var unknown []string
	for k := range in {
		if classify(k) == fieldUnknown {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// ExpandOptions control the expansion pre-pass.
type ExpandOptions struct {
	// LegacyAliases rewrites hid and vmid to key.
	LegacyAliases bool
}

// DefaultExpandOptions has legacy aliasing enabled.
var DefaultExpandOptions = ExpandOptions{LegacyAliases: true}

// reserved props are lifted into the tag's options or content.
const (
	propKey            = "key"
	propRenderPriority = "renderPriority"
	propBody           = "body"
	propChildren       = "children"
	propTextContent    = "textContent"
	propInnerHTML      = "innerHTML"
)

var legacyKeyAliases = []string{"hid", "vmid"}

// Expand flattens one resolved declaration into tags. Positions count up
// across all fields of the declaration in field order.
func Expand(src Source, opts ExpandOptions) []*Tag {
	var out []*Tag
	pos := 0
	add := func(t *Tag) {
		t.OriginEntryID = src.EntryID
		t.OriginPosition = pos
		t.Options.Raw = src.Raw
		pos++
		out = append(out, t)
	}

	for _, f := range fieldOrder {
		v, ok := src.Input[f.key]
		if !ok || v == nil {
			continue
		}

		switch f.kind {
		case fieldText:
			add(&Tag{Name: f.name, Props: map[string]any{}, Children: stringify(v)})
		case fieldElement, fieldSequence:
			for _, el := range elements(v) {
				if t := buildTag(f.name, el, opts); t != nil {
					add(t)
				}
			}
		case fieldAttrs:
			attrs, ok := v.(map[string]any)
			if !ok {
				continue
			}
			add(&Tag{Name: f.name, Props: normalizeProps(withoutControlKeys(attrs))})
		}
	}
	return out
}

// attrsControlKeys never render on <html> or <body>. Attribute tags merge
// rather than dedupe, so the values are dropped instead of lifted.
var attrsControlKeys = []string{
	propKey, "hid", "vmid", propRenderPriority, propBody,
	propChildren, propTextContent, propInnerHTML,
}

func withoutControlKeys(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	for _, k := range attrsControlKeys {
		delete(out, k)
	}
	return out
}

// elements accepts a sequence or a single element.
func elements(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return []any{v}
}

func buildTag(name Name, el any, opts ExpandOptions) *Tag {
	switch e := el.(type) {
	case map[string]any:
		return buildFromAttrs(name, e, opts)
	case nil:
		return nil
	default:
		// A bare scalar is content for tags that have content.
		switch name {
		case NameStyle, NameScript, NameNoscript:
			return &Tag{Name: name, Props: map[string]any{}, Children: stringify(e)}
		}
		return nil
	}
}

func buildFromAttrs(name Name, attrs map[string]any, opts ExpandOptions) *Tag {
	props := make(map[string]any, len(attrs))
	for k, v := range attrs {
		props[k] = v
	}
	t := &Tag{Name: name}

	if opts.LegacyAliases {
		for _, alias := range legacyKeyAliases {
			if v, ok := props[alias]; ok {
				if v != nil {
					t.Key = stringify(v)
				}
				delete(props, alias)
			}
		}
	}
	if v, ok := props[propKey]; ok {
		if v != nil {
			t.Key = stringify(v)
		}
		delete(props, propKey)
	}

	if v, ok := props[propRenderPriority]; ok {
		t.Options.RenderPriority = toPriority(v)
		delete(props, propRenderPriority)
	}

	if v, ok := props[propBody]; ok {
		switch name {
		case NameScript, NameStyle, NameNoscript, NameLink:
			t.Options.Body = truthy(v)
		}
		delete(props, propBody)
	}

	if v, ok := props[propChildren]; ok {
		t.Children = content(v)
		delete(props, propChildren)
	}
	if v, ok := props[propTextContent]; ok {
		t.Children = content(v)
		delete(props, propTextContent)
	}
	if v, ok := props[propInnerHTML]; ok {
		t.InnerHTML = content(v)
		delete(props, propInnerHTML)
	}

	t.Props = normalizeProps(props)
	return t
}

// normalizeProps keeps strings and booleans and stringifies the rest. Nil
// values mean absent.
func normalizeProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch pv := v.(type) {
		case nil:
		case string, bool:
			out[k] = pv
		default:
			out[k] = stringify(pv)
		}
	}
	return out
}

// content converts a content value to text. Structured values (JSON-LD and
// similar) are JSON encoded.
func content(v any) string {
	switch c := v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(b)
	default:
		return stringify(c)
	}
}

func toPriority(v any) *float64 {
	var p float64
	switch n := v.(type) {
	case int:
		p = float64(n)
	case int64:
		p = float64(n)
	case float64:
		p = n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		p = f
	default:
		return nil
	}
	return &p
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != "" && b != "false"
	case nil:
		return false
	default:
		return true
	}
}
