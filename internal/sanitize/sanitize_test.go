package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conneroisu/templhead/internal/tags"
)

func TestTag(t *testing.T) {
	tests := []struct {
		name      string
		tag       *tags.Tag
		wantProps map[string]any
		wantInner string
	}{
		{
			name: "event handlers and innerHTML dropped",
			tag: &tags.Tag{
				Name:      tags.NameScript,
				Props:     map[string]any{"onclick": "x()", "OnLoad": "y()", "src": "/a.js", "innerHTML": "<b>"},
				InnerHTML: "<i>",
			},
			wantProps: map[string]any{"src": "/a.js"},
		},
		{
			name: "raw tags untouched",
			tag: &tags.Tag{
				Name:      tags.NameScript,
				Props:     map[string]any{"onclick": "x()"},
				InnerHTML: "<i>",
				Options:   tags.Options{Raw: true},
			},
			wantProps: map[string]any{"onclick": "x()"},
			wantInner: "<i>",
		},
		{
			name:      "names stripped to safe characters",
			tag:       &tags.Tag{Name: tags.NameMeta, Props: map[string]any{`na"me`: "a", "data-x_1": "b", "<>": "c"}},
			wantProps: map[string]any{"name": "a", "data-x_1": "b"},
		},
		{
			name:      "handler hidden behind stripped characters",
			tag:       &tags.Tag{Name: tags.NameLink, Props: map[string]any{" onerror": "x()"}},
			wantProps: map[string]any{},
		},
		{
			name:      "url attributes encoded",
			tag:       &tags.Tag{Name: tags.NameLink, Props: map[string]any{"href": "/a b?q=%20", "rel": "icon"}},
			wantProps: map[string]any{"href": "/a%20b?q=%20", "rel": "icon"},
		},
		{
			name:      "script scheme rejected",
			tag:       &tags.Tag{Name: tags.NameLink, Props: map[string]any{"href": " JavaScript:alert(1)", "rel": "icon"}},
			wantProps: map[string]any{"rel": "icon"},
		},
		{
			name:      "booleans kept",
			tag:       &tags.Tag{Name: tags.NameScript, Props: map[string]any{"async": true, "defer": false}},
			wantProps: map[string]any{"async": true, "defer": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Tag(tt.tag)
			assert.Equal(t, tt.wantProps, tt.tag.Props)
			assert.Equal(t, tt.wantInner, tt.tag.InnerHTML)
		})
	}
}

func TestURI(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://example.com/a?b=c#d", "https://example.com/a?b=c#d", true},
		{"/café", "/caf%C3%A9", true},
		{"/100%", "/100%25", true},
		{"/a%2Fb", "/a%2Fb", true},
		{`/"x"`, "/%22x%22", true},
		{"javascript:alert(1)", "", false},
		{"java\tscript:alert(1)", "", false},
		{"VBScript:msgbox", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := URI(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;a href=&quot;x&quot;&gt;&amp;&#39;", EscapeHTML(`<a href="x">&'`))
}

func TestEscapeScript(t *testing.T) {
	assert.Equal(t, `{"a":"\u003c/script\u003e\u0026"}`, EscapeScript(`{"a":"</script>&"}`))
	assert.Equal(t, `\u2028\u2029`, EscapeScript(lineSeparator+paragraphSeparator))
}

func TestQuoteJS(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\n\u003c/script\u003e"`, QuoteJS("a\"b\\c\n</script>"))
	assert.Equal(t, `"it\'s"`, QuoteJS("it's"))
}

func TestIsJSONScript(t *testing.T) {
	script := func(typ string) *tags.Tag {
		return &tags.Tag{Name: tags.NameScript, Props: map[string]any{"type": typ}}
	}
	assert.True(t, IsJSONScript(script("application/ld+json")))
	assert.True(t, IsJSONScript(script("importmap")))
	assert.True(t, IsJSONScript(script("speculationrules")))
	assert.False(t, IsJSONScript(script("module")))
	assert.False(t, IsJSONScript(&tags.Tag{Name: tags.NameStyle, Props: map[string]any{"type": "application/json"}}))
}
