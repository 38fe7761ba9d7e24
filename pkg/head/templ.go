package head

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/templhead/internal/tags"
)

// HeadOutlet renders the head fragment of the head installed in the render
// context. Place it inside <head> of a layout.
func HeadOutlet() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h, err := FromContext(ctx)
		if err != nil {
			return err
		}
		return HeadTags(h).Render(ctx, w)
	})
}

// BodyOutlet renders the body fragment of the head installed in the render
// context. Place it at the end of <body>.
func BodyOutlet() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h, err := FromContext(ctx)
		if err != nil {
			return err
		}
		return BodyTags(h).Render(ctx, w)
	})
}

// HeadTags renders the head fragment of h.
func HeadTags(h *Head) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := h.RenderToString(ctx)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out.HeadTags)
		return err
	})
}

// BodyTags renders the body fragment of h.
func BodyTags(h *Head) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := h.RenderToString(ctx)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out.BodyTags)
		return err
	})
}

// HTMLAttributes returns the merged <html> attributes for templ spreading,
// including the marker listing them.
func (h *Head) HTMLAttributes(ctx context.Context) (templ.Attributes, error) {
	res, err := h.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return attributes(res.HTMLAttrs), nil
}

// BodyAttributes returns the merged <body> attributes for templ spreading.
func (h *Head) BodyAttributes(ctx context.Context) (templ.Attributes, error) {
	res, err := h.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return attributes(res.BodyAttrs), nil
}

func attributes(attrs map[string]any) templ.Attributes {
	out := templ.Attributes{}
	var names []string
	for k, v := range attrs {
		if b, ok := v.(bool); ok && !b {
			continue
		}
		k = strings.ToLower(k)
		if _, dup := out[k]; !dup {
			names = append(names, k)
		}
		out[k] = v
	}
	if len(names) > 0 {
		sort.Strings(names)
		out[tags.AttrsMarkerAttr] = strings.Join(names, ",")
	}
	return out
}
