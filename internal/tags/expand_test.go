package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	src := Source{
		EntryID: 4,
		Input: Input{
			"title": "Home",
			"meta": []any{
				map[string]any{"name": "description", "content": "d"},
				map[string]any{"charset": "utf-8"},
			},
			"base":      map[string]any{"href": "/"},
			"htmlAttrs": map[string]any{"lang": "en"},
			"unknown":   "dropped",
		},
	}

	got := Expand(src, DefaultExpandOptions)
	require.Len(t, got, 5)

	names := make([]Name, len(got))
	for i, tag := range got {
		names[i] = tag.Name
		assert.Equal(t, 4, tag.OriginEntryID)
		assert.Equal(t, i, tag.OriginPosition)
	}
	assert.Equal(t, []Name{NameTitle, NameMeta, NameMeta, NameBase, NameHTMLAttrs}, names)
	assert.Equal(t, "Home", got[0].Children)
	assert.Equal(t, map[string]any{"href": "/"}, got[3].Props)
}

func TestExpandLiftsReservedProps(t *testing.T) {
	src := Source{
		EntryID: 1,
		Raw:     true,
		Input: Input{
			"script": []any{
				map[string]any{
					"src":            "/a.js",
					"key":            "analytics",
					"renderPriority": 2,
					"body":           true,
					"defer":          true,
					"async":          false,
					"nonce":          nil,
				},
				map[string]any{"children": "a", "textContent": "b", "innerHTML": "<b>"},
			},
		},
	}

	got := Expand(src, DefaultExpandOptions)
	require.Len(t, got, 2)

	s := got[0]
	assert.Equal(t, "analytics", s.Key)
	require.NotNil(t, s.Options.RenderPriority)
	assert.Equal(t, 2.0, *s.Options.RenderPriority)
	assert.True(t, s.Options.Body)
	assert.True(t, s.Options.Raw)
	assert.Equal(t, map[string]any{"src": "/a.js", "defer": true, "async": false}, s.Props)

	assert.Equal(t, "b", got[1].Children, "textContent overrides children")
	assert.Equal(t, "<b>", got[1].InnerHTML)
}

func TestExpandLegacyAliases(t *testing.T) {
	src := Source{Input: Input{"meta": []any{map[string]any{"hid": "d", "name": "description"}}}}

	withAliases := Expand(src, DefaultExpandOptions)
	require.Len(t, withAliases, 1)
	assert.Equal(t, "d", withAliases[0].Key)
	assert.NotContains(t, withAliases[0].Props, "hid")

	without := Expand(src, ExpandOptions{})
	require.Len(t, without, 1)
	assert.Empty(t, without[0].Key)
	assert.Equal(t, "d", without[0].Props["hid"])
}

func TestExpandKeyAliasPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		attrs    map[string]any
		expected string
	}{
		{"hid", map[string]any{"hid": "a"}, "a"},
		{"vmid", map[string]any{"vmid": "a"}, "a"},
		{"key beats hid", map[string]any{"hid": "a", "key": "b"}, "b"},
		{"key beats vmid", map[string]any{"vmid": "a", "key": "b"}, "b"},
		{"vmid beats hid", map[string]any{"hid": "a", "vmid": "b"}, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := map[string]any{"name": "description"}
			for k, v := range tt.attrs {
				attrs[k] = v
			}
			got := Expand(Source{Input: Input{"meta": []any{attrs}}}, DefaultExpandOptions)
			require.Len(t, got, 1)
			assert.Equal(t, tt.expected, got[0].Key)
			assert.Equal(t, map[string]any{"name": "description"}, got[0].Props)
		})
	}
}

func TestExpandAliasedAndKeyedCollapse(t *testing.T) {
	first := Expand(Source{EntryID: 1, Input: Input{"script": []any{
		map[string]any{"hid": "analytics", "src": "/old.js"},
	}}}, DefaultExpandOptions)
	second := Expand(Source{EntryID: 2, Input: Input{"script": []any{
		map[string]any{"vmid": "analytics", "src": "/mid.js"},
	}}}, DefaultExpandOptions)
	third := Expand(Source{EntryID: 3, Input: Input{"script": []any{
		map[string]any{"key": "analytics", "src": "/new.js"},
	}}}, DefaultExpandOptions)

	got := Dedupe(append(append(first, second...), third...))
	require.Len(t, got, 1)
	assert.Equal(t, "/new.js", got[0].Props["src"])
}

func TestExpandAttrsDropControlKeys(t *testing.T) {
	src := Source{Input: Input{
		"htmlAttrs": map[string]any{"lang": "en", "key": "x", "hid": "h", "renderPriority": 1},
		"bodyAttrs": map[string]any{"class": "a", "body": true, "children": "c", "vmid": "v"},
	}}
	got := Expand(src, DefaultExpandOptions)
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"lang": "en"}, got[0].Props)
	assert.Equal(t, map[string]any{"class": "a"}, got[1].Props)
	assert.Empty(t, got[0].Key)
	assert.Nil(t, got[0].Options.RenderPriority)
	assert.False(t, got[1].Options.Body)
}

func TestExpandBodyOnlyForBodyCapableTags(t *testing.T) {
	src := Source{Input: Input{"meta": []any{map[string]any{"name": "a", "body": true}}}}
	got := Expand(src, DefaultExpandOptions)
	require.Len(t, got, 1)
	assert.False(t, got[0].Options.Body)
	assert.NotContains(t, got[0].Props, "body")
}

func TestExpandStructuredContent(t *testing.T) {
	src := Source{Input: Input{"script": []any{map[string]any{
		"type":     "application/ld+json",
		"children": map[string]any{"@type": "Thing"},
	}}}}
	got := Expand(src, DefaultExpandOptions)
	require.Len(t, got, 1)
	assert.Equal(t, `{"@type":"Thing"}`, got[0].Children)
}

func TestExpandScalarContent(t *testing.T) {
	src := Source{Input: Input{
		"style": []any{"body{color:red}"},
		"meta":  []any{"ignored", nil},
	}}
	got := Expand(src, DefaultExpandOptions)
	require.Len(t, got, 1)
	assert.Equal(t, NameStyle, got[0].Name)
	assert.Equal(t, "body{color:red}", got[0].Children)
}

func TestUnknownFields(t *testing.T) {
	assert.Equal(t, []string{"bogus"}, UnknownFields(Input{"title": "a", "titleTemplate": "%s", "bogus": 1}))
	assert.Empty(t, UnknownFields(Input{"title": "a"}))
}

func TestTagProp(t *testing.T) {
	tag := &Tag{Name: NameScript, Props: map[string]any{"async": true, "defer": false, "src": "/a.js"}}

	v, ok := tag.Prop("async")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = tag.Prop("defer")
	assert.False(t, ok)

	assert.Equal(t, []string{"async", "src"}, tag.PropNames())
	assert.Equal(t, `<script async="" src="/a.js">`, tag.String())

	clone := tag.Clone()
	clone.Props["src"] = "/b.js"
	assert.Equal(t, "/a.js", tag.Props["src"])
}
