package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/templhead/internal/renderer"
	"github.com/conneroisu/templhead/internal/tags"
)

// Element builds the node a tag reconciles to. Text is stored the way the
// HTML parser would produce it from the string renderer's output, so a
// server-rendered document matches the nodes built on the next pass.
func Element(t *tags.Tag) *html.Node {
	n := newElement(string(t.Name))

	for _, name := range t.PropNames() {
		v, _ := t.Prop(name)
		n.Attr = append(n.Attr, html.Attribute{Key: strings.ToLower(name), Val: v})
	}
	if t.Options.Body {
		n.Attr = append(n.Attr, html.Attribute{Key: tags.BodyMarkerAttr})
	}
	sortAttrs(n.Attr)

	if t.Name.SelfClosing() {
		return n
	}
	text := t.Children
	if isRawText(n.DataAtom) {
		text = renderer.Content(t)
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}

// isRawText reports whether the parser keeps the element's text verbatim.
func isRawText(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript:
		return true
	}
	return false
}

func newElement(name string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
	}
}

func sortAttrs(attrs []html.Attribute) {
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Key < attrs[j].Key })
}

// findElement returns the first element named name in a depth-first walk.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			b.WriteString(textContent(c))
		}
	}
	return b.String()
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// isEqualNode compares tag name, attributes and text. Nonces compare
// separately: differing nonces never match, and an old nonce the new element
// lacks never matches.
func isEqualNode(old, n *html.Node) bool {
	if old.Type != html.ElementNode || old.Data != n.Data {
		return false
	}

	// Browsers hide a live element's nonce, so an old element without one
	// still matches a new one that has it. Trees parsed by x/net/html keep
	// every nonce; the leniency only matters for browser-serialised input.
	newNonce, _ := getAttr(n, "nonce")
	oldNonce, _ := getAttr(old, "nonce")
	if newNonce != "" && oldNonce != "" && newNonce != oldNonce {
		return false
	}
	if newNonce == "" && oldNonce != "" {
		return false
	}

	oldAttrs := attrMap(old)
	newAttrs := attrMap(n)
	if len(oldAttrs) != len(newAttrs) {
		return false
	}
	for k, v := range newAttrs {
		if ov, ok := oldAttrs[k]; !ok || ov != v {
			return false
		}
	}

	return textContent(old) == textContent(n)
}

func attrMap(n *html.Node) map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		if a.Namespace != "" || a.Key == "nonce" {
			continue
		}
		m[a.Key] = a.Val
	}
	return m
}
