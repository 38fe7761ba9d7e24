// Package dom reconciles a render pass into a live document tree.
//
// The document is a golang.org/x/net/html node tree. All state the
// reconciler needs from the previous pass lives in the document itself: the
// count marker in <head> bounds the managed head elements preceding it,
// managed body elements carry the body marker attribute, and <html>/<body>
// list the attribute names they were given. Reconcile derives the old
// element pools from those markers on every call and keeps any old element
// structurally equal to a new one untouched.
package dom

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/templhead/internal/engine"
	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/tags"
)

// Report describes what a reconciliation changed.
type Report struct {
	Inserted int
	Removed  int
	Kept     int
	// HeadCount is the new value of the count marker.
	HeadCount int
	// TagTypes are the tag types managed before this pass, sorted.
	TagTypes []string
	// Skipped is set when a dom:beforeRender hook vetoed the write.
	Skipped bool
}

// Changed reports whether any element was inserted or removed.
func (r Report) Changed() bool {
	return r.Inserted > 0 || r.Removed > 0
}

// Reconcile updates doc so it reflects res.
func Reconcile(doc *html.Node, res *engine.Result) (Report, error) {
	var report Report

	root := findElement(doc, atom.Html)
	if root == nil {
		return report, errors.NewValidationError(errors.ErrCodeDocumentInvalid, "document has no <html> element")
	}
	head := ensureChild(root, atom.Head, true)
	body := ensureChild(root, atom.Body, false)

	marker := countMarker(head)
	oldHead := managedHead(marker)
	oldBody := managedBody(body)
	report.TagTypes = tagTypes(oldHead, oldBody)

	var newHead, newBody []*html.Node
	for _, t := range res.Tags {
		n := Element(t)
		if match := take(&oldHead, n); match != nil {
			report.Kept++
			continue
		}
		if match := take(&oldBody, n); match != nil {
			report.Kept++
			continue
		}
		if t.Options.Body {
			newBody = append(newBody, n)
		} else {
			newHead = append(newHead, n)
		}
	}

	for _, old := range append(oldHead, oldBody...) {
		if old.Parent != nil {
			old.Parent.RemoveChild(old)
			report.Removed++
		}
	}
	for _, n := range newHead {
		head.InsertBefore(n, marker)
		report.Inserted++
	}
	for _, n := range newBody {
		body.AppendChild(n)
		report.Inserted++
	}

	report.HeadCount = len(res.HeadTags())
	setAttr(marker, "content", strconv.Itoa(report.HeadCount))

	if res.Title != nil {
		setTitle(head, res.Title.Children)
	}

	reconcileAttrs(root, res.HTMLAttrs)
	reconcileAttrs(body, res.BodyAttrs)

	return report, nil
}

// ensureChild finds the head or body element, creating it when the tree
// lacks one.
func ensureChild(root *html.Node, a atom.Atom, first bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	n := newElement(a.String())
	if first && root.FirstChild != nil {
		root.InsertBefore(n, root.FirstChild)
	} else {
		root.AppendChild(n)
	}
	return n
}

// countMarker finds the count marker in head, appending one with count 0
// when absent.
func countMarker(head *html.Node) *html.Node {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Meta {
			if name, _ := getAttr(c, "name"); name == tags.CountMetaName {
				return c
			}
		}
	}
	marker := newElement("meta")
	marker.Attr = []html.Attribute{
		{Key: "name", Val: tags.CountMetaName},
		{Key: "content", Val: "0"},
	}
	head.AppendChild(marker)
	return marker
}

// managedHead collects the count elements preceding the marker, in
// document order.
func managedHead(marker *html.Node) []*html.Node {
	val, _ := getAttr(marker, "content")
	count, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || count < 0 {
		count = 0
	}

	var out []*html.Node
	for n := marker.PrevSibling; n != nil && len(out) < count; n = n.PrevSibling {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func managedBody(body *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if _, ok := getAttr(c, tags.BodyMarkerAttr); ok {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(body)
	return out
}

func tagTypes(pools ...[]*html.Node) []string {
	seen := map[string]bool{}
	for _, pool := range pools {
		for _, n := range pool {
			seen[n.Data] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// take removes and returns the first node in pool equal to n.
func take(pool *[]*html.Node, n *html.Node) *html.Node {
	for i, old := range *pool {
		if isEqualNode(old, n) {
			*pool = append((*pool)[:i], (*pool)[i+1:]...)
			return old
		}
	}
	return nil
}

func setTitle(head *html.Node, text string) {
	title := findElement(head, atom.Title)
	if title == nil {
		title = newElement("title")
		head.InsertBefore(title, head.FirstChild)
	}
	if textContent(title) != text {
		setText(title, text)
	}
}

// reconcileAttrs removes previously written attributes missing from attrs,
// writes attrs and records the written names.
func reconcileAttrs(el *html.Node, attrs map[string]any) {
	var prev []string
	if listed, ok := getAttr(el, tags.AttrsMarkerAttr); ok && listed != "" {
		for _, name := range strings.Split(listed, ",") {
			prev = append(prev, strings.ToLower(strings.TrimSpace(name)))
		}
	}

	values := make(map[string]any, len(attrs))
	names := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if b, ok := v.(bool); ok && !b {
			continue
		}
		k = strings.ToLower(k)
		values[k] = v
		names = append(names, k)
	}
	sort.Strings(names)

	for _, p := range prev {
		if _, ok := values[p]; !ok {
			removeAttr(el, p)
		}
	}

	for _, name := range names {
		switch val := values[name].(type) {
		case string:
			setAttr(el, name, val)
		case bool:
			setAttr(el, name, "")
		}
	}

	if len(names) == 0 {
		removeAttr(el, tags.AttrsMarkerAttr)
		return
	}
	setAttr(el, tags.AttrsMarkerAttr, strings.Join(names, ","))
}
