package tags

import (
	"sort"
	"strings"
)

// Default sort weights. Lower sorts earlier.
const (
	WeightCharset = -2
	WeightBase    = -1
	WeightCSP     = 0
	WeightDefault = 10
)

// Weight returns the sort weight of a tag.
func Weight(t *Tag) float64 {
	if t.Options.RenderPriority != nil {
		return *t.Options.RenderPriority
	}
	switch t.Name {
	case NameBase:
		return WeightBase
	case NameMeta:
		if _, ok := t.Prop("charset"); ok {
			return WeightCharset
		}
		if v, _ := t.Prop("http-equiv"); strings.EqualFold(v, "content-security-policy") {
			return WeightCSP
		}
	}
	return WeightDefault
}

// SortByPriority stable-sorts tags by weight.
func SortByPriority(tags []*Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		return Weight(tags[i]) < Weight(tags[j])
	})
}
