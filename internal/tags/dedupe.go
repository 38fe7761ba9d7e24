package tags

import (
	"sort"
	"strings"
)

// metaIdentityProps are the meta attributes that identify a meta tag when no
// explicit key is given, in fallback order.
var metaIdentityProps = []string{"name", "property", "http-equiv"}

// DedupeKey returns the identity of a tag. Tags sharing a key collapse to
// the last one registered; an empty key means the tag is never collapsed.
func DedupeKey(t *Tag) string {
	switch t.Name {
	case NameBase, NameTitle:
		return string(t.Name)
	case NameHTMLAttrs, NameBodyAttrs:
		return ""
	}

	if t.Name == NameLink {
		if rel, _ := t.Prop("rel"); rel == "canonical" {
			return "canonical"
		}
	}

	if _, ok := t.Prop("charset"); ok {
		return "charset"
	}

	if t.Key != "" {
		return string(t.Name) + "-key-" + t.Key
	}
	if id, ok := t.Prop("id"); ok && id != "" {
		return string(t.Name) + "-key-" + id
	}

	if t.Name == NameMeta {
		for _, attr := range metaIdentityProps {
			if v, ok := t.Prop(attr); ok && v != "" {
				// http-equiv values are case-insensitive header names.
				if attr == "http-equiv" {
					v = strings.ToLower(v)
				}
				return string(t.Name) + "-" + attr + "-" + v
			}
		}
	}
	return ""
}

// SortByOrigin orders tags by entry id, then position within the entry.
func SortByOrigin(tags []*Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].OriginEntryID != tags[j].OriginEntryID {
			return tags[i].OriginEntryID < tags[j].OriginEntryID
		}
		return tags[i].OriginPosition < tags[j].OriginPosition
	})
}

// Dedupe keeps one tag per dedupe key: the last one in registration order.
// Unkeyed tags are all kept. The result is ordered by origin.
func Dedupe(tags []*Tag) []*Tag {
	ordered := make([]*Tag, len(tags))
	copy(ordered, tags)
	SortByOrigin(ordered)

	slots := make(map[string]int)
	kept := make([]*Tag, 0, len(ordered))
	for _, t := range ordered {
		key := DedupeKey(t)
		if key != "" {
			if i, ok := slots[key]; ok {
				kept[i] = nil
			}
			slots[key] = len(kept)
		}
		kept = append(kept, t)
	}

	out := kept[:0]
	for _, t := range kept {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
