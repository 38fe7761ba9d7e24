package tags

import (
	"fmt"
	"strings"
)

const titleTemplateKey = "titleTemplate"

// TitleTemplate is the template in effect for a render pass.
type TitleTemplate struct {
	// EntryID is the entry the template was declared by.
	EntryID int
	Raw     bool
	// Format replaces its first %s with the title. Unused when Func is set.
	Format string
	Func   TemplateFunc
}

// FindTitleTemplate scans sources newest first. The first source declaring
// titleTemplate decides: an explicit nil clears any older template, a value
// becomes the template. It returns nil when no template is in effect.
func FindTitleTemplate(sources []Source) *TitleTemplate {
	for i := len(sources) - 1; i >= 0; i-- {
		v, ok := sources[i].Input[titleTemplateKey]
		if !ok {
			continue
		}
		tpl := &TitleTemplate{EntryID: sources[i].EntryID, Raw: sources[i].Raw}
		switch t := v.(type) {
		case nil:
			return nil
		case string:
			tpl.Format = t
		case TemplateFunc:
			if t == nil {
				return nil
			}
			tpl.Func = t
		case func(*string) *string:
			if t == nil {
				return nil
			}
			tpl.Func = t
		case func(string) string:
			if t == nil {
				return nil
			}
			tpl.Func = func(title *string) *string {
				s := ""
				if title != nil {
					s = *title
				}
				out := t(s)
				return &out
			}
		default:
			tpl.Format = fmt.Sprint(t)
		}
		return tpl
	}
	return nil
}

// Apply computes the final title text. A nil result means no title.
func (tpl *TitleTemplate) Apply(title *string) *string {
	if tpl.Func != nil {
		return tpl.Func(title)
	}
	s := ""
	if title != nil {
		s = *title
	}
	out := strings.Replace(tpl.Format, "%s", s, 1)
	return &out
}

// ApplyTitleTemplate rewrites the title tag with tpl. A function template
// returning nil removes the title tag. Without a title tag, only a function
// template can produce one, and only with non-empty text.
func ApplyTitleTemplate(tags []*Tag, tpl *TitleTemplate) []*Tag {
	if tpl == nil {
		return tags
	}

	for i, t := range tags {
		if t.Name != NameTitle {
			continue
		}
		text := t.Children
		res := tpl.Apply(&text)
		if res == nil {
			return append(tags[:i:i], tags[i+1:]...)
		}
		t.Children = *res
		return tags
	}

	if tpl.Func == nil {
		return tags
	}
	res := tpl.Func(nil)
	if res == nil || *res == "" {
		return tags
	}
	return append(tags, &Tag{
		Name:           NameTitle,
		Props:          map[string]any{},
		Children:       *res,
		Options:        Options{Raw: tpl.Raw},
		OriginEntryID:  tpl.EntryID,
		OriginPosition: 0,
	})
}
