//go:build property
// +build property

package tags

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// metaTags builds one tag per seed. Seeds pick the entry, and every third
// tag has no identity.
func metaTags(seeds []int) []*Tag {
	out := make([]*Tag, len(seeds))
	for i, v := range seeds {
		props := map[string]any{"content": fmt.Sprint(i)}
		if v%3 != 0 {
			props["name"] = fmt.Sprintf("k%d", v%4)
		}
		out[i] = &Tag{
			Name:           NameMeta,
			Props:          props,
			OriginEntryID:  v % 5,
			OriginPosition: i,
		}
	}
	return out
}

// weightedTags builds tags covering every default weight and explicit
// priorities. OriginPosition records the input order.
func weightedTags(seeds []int) []*Tag {
	out := make([]*Tag, len(seeds))
	for i, v := range seeds {
		t := &Tag{Name: NameMeta, Props: map[string]any{}, OriginPosition: i}
		switch v % 5 {
		case 0:
			t.Props["charset"] = "utf-8"
		case 1:
			t.Name = NameBase
		case 2:
			t.Props["http-equiv"] = "Content-Security-Policy"
		case 3:
			p := float64(v%7 - 3)
			t.Options.RenderPriority = &p
		}
		out[i] = t
	}
	return out
}

func TestDedupeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	seeds := gen.SliceOf(gen.IntRange(0, 100))

	properties.Property("survivors have distinct keys", prop.ForAll(
		func(s []int) bool {
			seen := map[string]bool{}
			for _, tag := range Dedupe(metaTags(s)) {
				key := DedupeKey(tag)
				if key == "" {
					continue
				}
				if seen[key] {
					return false
				}
				seen[key] = true
			}
			return true
		},
		seeds,
	))

	properties.Property("output is ordered by origin", prop.ForAll(
		func(s []int) bool {
			out := Dedupe(metaTags(s))
			for i := 1; i < len(out); i++ {
				a, b := out[i-1], out[i]
				if a.OriginEntryID > b.OriginEntryID ||
					a.OriginEntryID == b.OriginEntryID && a.OriginPosition > b.OriginPosition {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.Property("the last registered tag of each key survives", prop.ForAll(
		func(s []int) bool {
			in := metaTags(s)
			ordered := append([]*Tag(nil), in...)
			SortByOrigin(ordered)
			last := map[string]*Tag{}
			for _, tag := range ordered {
				if key := DedupeKey(tag); key != "" {
					last[key] = tag
				}
			}
			for _, tag := range Dedupe(in) {
				if key := DedupeKey(tag); key != "" && last[key] != tag {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.Property("unkeyed tags are all kept", prop.ForAll(
		func(s []int) bool {
			count := func(ts []*Tag) int {
				n := 0
				for _, tag := range ts {
					if DedupeKey(tag) == "" {
						n++
					}
				}
				return n
			}
			in := metaTags(s)
			return count(Dedupe(in)) == count(in)
		},
		seeds,
	))

	properties.Property("dedupe is idempotent", prop.ForAll(
		func(s []int) bool {
			once := Dedupe(metaTags(s))
			twice := Dedupe(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.TestingRun(t)
}

func TestSortProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	seeds := gen.SliceOf(gen.IntRange(0, 100))

	properties.Property("weights never decrease", prop.ForAll(
		func(s []int) bool {
			ts := weightedTags(s)
			SortByPriority(ts)
			for i := 1; i < len(ts); i++ {
				if Weight(ts[i-1]) > Weight(ts[i]) {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.Property("equal weights keep their order", prop.ForAll(
		func(s []int) bool {
			ts := weightedTags(s)
			SortByPriority(ts)
			for i := 1; i < len(ts); i++ {
				if Weight(ts[i-1]) == Weight(ts[i]) && ts[i-1].OriginPosition > ts[i].OriginPosition {
					return false
				}
			}
			return true
		},
		seeds,
	))

	properties.TestingRun(t)
}
