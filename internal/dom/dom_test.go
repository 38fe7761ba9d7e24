package dom

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/templhead/internal/engine"
	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/registry"
	"github.com/conneroisu/templhead/internal/renderer"
	"github.com/conneroisu/templhead/internal/tags"
)

func resolve(t *testing.T, inputs ...tags.Input) *engine.Result {
	t.Helper()
	reg := registry.NewRegistry()
	for _, in := range inputs {
		reg.Register(in, registry.Options{})
	}
	res, err := engine.New(reg, nil, engine.Options{Expand: tags.DefaultExpandOptions}).Render(context.Background())
	require.NoError(t, err)
	return res
}

// serverDocument parses the page a server would send for res.
func serverDocument(t *testing.T, res *engine.Result) *html.Node {
	t.Helper()
	out := renderer.Render(res)
	page := "<!DOCTYPE html><html " + out.HTMLAttrs + "><head>" + out.HeadTags +
		"</head><body " + out.BodyAttrs + "><div id=\"app\">content</div>" + out.BodyTags + "</body></html>"
	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func serialize(t *testing.T, doc *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, doc))
	return buf.String()
}

var stateA = tags.Input{
	"title": "Home",
	"meta": []tags.Attrs{
		{"charset": "utf-8"},
		{"name": "description", "content": "Fish & chips"},
	},
	"link":      []tags.Attrs{{"rel": "icon", "href": "/favicon.ico"}},
	"style":     []tags.Attrs{{"children": "a > b { color: red }"}},
	"script":    []tags.Attrs{{"src": "/app.js", "body": true, "defer": true}},
	"htmlAttrs": tags.Attrs{"lang": "en", "dir": "ltr"},
	"bodyAttrs": tags.Attrs{"class": "home"},
}

var stateB = tags.Input{
	"title": "About",
	"meta": []tags.Attrs{
		{"charset": "utf-8"},
		{"name": "description", "content": "Fish & chips"},
	},
	"script": []tags.Attrs{
		{"src": "/about.js"},
		{"type": "application/ld+json", "children": `{"@type":"AboutPage"}`},
	},
	"htmlAttrs": tags.Attrs{"lang": "fr"},
}

func TestReconcileServerRenderedIsNoop(t *testing.T) {
	res := resolve(t, stateA)
	doc := serverDocument(t, res)
	before := serialize(t, doc)

	report, err := Reconcile(doc, res)
	require.NoError(t, err)

	assert.False(t, report.Changed())
	assert.Equal(t, 0, report.Inserted)
	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, len(res.Tags), report.Kept)
	assert.Equal(t, []string{"link", "meta", "script", "style"}, report.TagTypes)
	assert.Equal(t, before, serialize(t, doc))
}

func TestReconcileIsIdempotent(t *testing.T) {
	res := resolve(t, stateA)
	doc, err := html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	require.NoError(t, err)

	first, err := Reconcile(doc, res)
	require.NoError(t, err)
	assert.Equal(t, len(res.Tags), first.Inserted)
	assert.Empty(t, first.TagTypes)

	second, err := Reconcile(doc, res)
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Equal(t, len(res.Tags), second.Kept)
}

func TestReconcileTransition(t *testing.T) {
	doc := serverDocument(t, resolve(t, stateA))

	res := resolve(t, stateB)
	report, err := Reconcile(doc, res)
	require.NoError(t, err)

	// charset and description are shared; link, style and the body script
	// are unique to A; both scripts are unique to B.
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 3, report.Removed)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 4, report.HeadCount)

	out := serialize(t, doc)
	assert.NotContains(t, out, "favicon.ico")
	assert.NotContains(t, out, "/app.js")
	assert.NotContains(t, out, "color: red")
	assert.Contains(t, out, `<script src="/about.js"></script>`)
	assert.Contains(t, out, `<title>About</title>`)
	assert.Contains(t, out, `<meta name="head:count" content="4"/>`)
	assert.Contains(t, out, `<div id="app">content</div>`, "unmanaged content untouched")

	root := findElement(doc, atom.Html)
	lang, _ := getAttr(root, "lang")
	assert.Equal(t, "fr", lang)
	_, hasDir := getAttr(root, "dir")
	assert.False(t, hasDir)
	listed, _ := getAttr(root, tags.AttrsMarkerAttr)
	assert.Equal(t, "lang", listed)

	body := findElement(doc, atom.Body)
	_, hasClass := getAttr(body, "class")
	assert.False(t, hasClass)
	_, hasMarker := getAttr(body, tags.AttrsMarkerAttr)
	assert.False(t, hasMarker)

	// Going back to A from B's document converges on A's server render.
	resA := resolve(t, stateA)
	_, err = Reconcile(doc, resA)
	require.NoError(t, err)
	again, err := Reconcile(doc, resA)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestReconcileRemovesMixedCaseAttrs(t *testing.T) {
	doc := serverDocument(t, resolve(t, tags.Input{
		"htmlAttrs": tags.Attrs{"lang": "en", "dataTheme": "dark"},
	}))
	root := findElement(doc, atom.Html)
	marker, _ := getAttr(root, tags.AttrsMarkerAttr)
	assert.Equal(t, "datatheme,lang", marker)

	_, err := Reconcile(doc, resolve(t, tags.Input{"htmlAttrs": tags.Attrs{"lang": "en"}}))
	require.NoError(t, err)

	_, ok := getAttr(root, "datatheme")
	assert.False(t, ok)
	lang, _ := getAttr(root, "lang")
	assert.Equal(t, "en", lang)
	marker, _ = getAttr(root, tags.AttrsMarkerAttr)
	assert.Equal(t, "lang", marker)
}

func TestReconcileRemovesAttrsListedInUpperCase(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(
		`<html><head></head><body data-mode="x" data-head-attrs="Data-Mode"></body></html>`))
	require.NoError(t, err)

	_, err = Reconcile(doc, resolve(t))
	require.NoError(t, err)

	body := findElement(doc, atom.Body)
	_, ok := getAttr(body, "data-mode")
	assert.False(t, ok)
	_, ok = getAttr(body, tags.AttrsMarkerAttr)
	assert.False(t, ok)
}

func TestReconcileLeavesUnmanagedHeadElements(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(
		`<html><head><link rel="stylesheet" href="/site.css"><meta name="head:count" content="0"></head><body></body></html>`))
	require.NoError(t, err)

	_, err = Reconcile(doc, resolve(t, tags.Input{"meta": []tags.Attrs{{"name": "a", "content": "1"}}}))
	require.NoError(t, err)

	out := serialize(t, doc)
	assert.Contains(t, out, `<link rel="stylesheet" href="/site.css"/><meta content="1" name="a"/><meta name="head:count" content="1"/>`)
}

func TestReconcileCreatesMissingStructure(t *testing.T) {
	doc := &html.Node{Type: html.DocumentNode}
	root := newElement("html")
	doc.AppendChild(root)

	report, err := Reconcile(doc, resolve(t, tags.Input{"title": "T", "meta": []tags.Attrs{{"name": "a", "content": "1"}}}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	require.NotNil(t, findElement(doc, atom.Head))
	require.NotNil(t, findElement(doc, atom.Body))
	title := findElement(doc, atom.Title)
	require.NotNil(t, title)
	assert.Equal(t, "T", textContent(title))
}

func TestReconcileRejectsDocumentWithoutRoot(t *testing.T) {
	_, err := Reconcile(&html.Node{Type: html.DocumentNode}, resolve(t))
	require.Error(t, err)

	var te *errors.TemplheadError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, errors.ErrCodeDocumentInvalid, te.Code)
}

func TestIsEqualNodeNonce(t *testing.T) {
	withNonce := func(nonce string) *html.Node {
		n := newElement("script")
		n.Attr = []html.Attribute{{Key: "src", Val: "/a.js"}}
		if nonce != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: "nonce", Val: nonce})
		}
		return n
	}

	assert.True(t, isEqualNode(withNonce(""), withNonce("")))
	assert.True(t, isEqualNode(withNonce("a"), withNonce("a")))
	assert.False(t, isEqualNode(withNonce("a"), withNonce("b")))
	assert.True(t, isEqualNode(withNonce(""), withNonce("a")), "browsers hide the nonce of the live element")
	assert.False(t, isEqualNode(withNonce("a"), withNonce("")))
}
