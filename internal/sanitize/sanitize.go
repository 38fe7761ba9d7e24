// Package sanitize removes unsafe content from tags of non-raw entries and
// provides the escapers the string renderer applies at serialisation time.
//
// Sanitisation is silent: a rejected attribute simply disappears. Tags of
// raw entries are never touched; marking an entry raw is a trust boundary
// owned by the caller.
package sanitize

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/conneroisu/templhead/internal/tags"
)

// Tags sanitises every non-raw tag in place.
func Tags(ts []*tags.Tag) {
	for _, t := range ts {
		Tag(t)
	}
}

// Tag sanitises t in place unless it is raw.
func Tag(t *tags.Tag) {
	if t.Options.Raw {
		return
	}
	t.InnerHTML = ""

	clean := make(map[string]any, len(t.Props))
	// Names that strip to the same identifier resolve in lexical order.
	for _, k := range sortedKeys(t.Props) {
		if isUnsafeName(k) {
			continue
		}
		name := AttrName(k)
		if name == "" || isUnsafeName(name) {
			continue
		}
		v := t.Props[k]
		if s, ok := v.(string); ok && isURLAttr(name) {
			u, ok := URI(s)
			if !ok {
				continue
			}
			v = u
		}
		clean[name] = v
	}
	t.Props = clean
}

func isUnsafeName(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "on") || name == "innerHTML"
}

func isURLAttr(name string) bool {
	switch strings.ToLower(name) {
	case "href", "src":
		return true
	}
	return false
}

// AttrName strips every character outside [A-Za-z0-9_-].
func AttrName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

var blockedSchemes = []string{"javascript:", "vbscript:"}

// uriSafe holds the bytes URI leaves as they are.
const uriSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789;,/?:@&=+$-_.!~*'()#"

// URI percent-encodes a URL value the way encodeURI does, leaving existing
// %XX escapes intact. It rejects script-executing schemes.
func URI(v string) (string, bool) {
	probe := strings.ToLower(strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v))
	for _, scheme := range blockedSchemes {
		if strings.HasPrefix(probe, scheme) {
			return "", false
		}
	}

	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case strings.IndexByte(uriSafe, c) >= 0:
			b.WriteByte(c)
		case c == '%' && i+2 < len(v) && isHex(v[i+1]) && isHex(v[i+2]):
			b.WriteByte(c)
		default:
			const hex = "0123456789ABCDEF"
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xF])
		}
	}
	return b.String(), true
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#39;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML entity-escapes & " ' < and >.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

const (
	lineSeparator      = string(rune(0x2028))
	paragraphSeparator = string(rune(0x2029))
)

var scriptEscaper = strings.NewReplacer(
	"<", "\\u003c",
	">", "\\u003e",
	"&", "\\u0026",
	lineSeparator, "\\u2028",
	paragraphSeparator, "\\u2029",
)

// EscapeScript makes JSON safe to embed in a <script> element without
// changing its meaning.
func EscapeScript(s string) string {
	return scriptEscaper.Replace(s)
}

var jsStringEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\"", "\\\"",
	"'", "\\'",
	"\n", "\\n",
	"\r", "\\r",
	lineSeparator, "\\u2028",
	paragraphSeparator, "\\u2029",
	"<", "\\u003c",
	">", "\\u003e",
	"&", "\\u0026",
)

// QuoteJS returns s as a double-quoted JavaScript string literal safe for an
// inline script.
func QuoteJS(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return "\"" + jsStringEscaper.Replace(s) + "\""
}

// IsJSONScript reports whether t is a script whose body is JSON data.
func IsJSONScript(t *tags.Tag) bool {
	if t.Name != tags.NameScript {
		return false
	}
	typ, _ := t.Prop("type")
	typ = strings.ToLower(strings.TrimSpace(typ))
	return strings.HasSuffix(typ, "json") || typ == "importmap" || typ == "speculationrules"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
