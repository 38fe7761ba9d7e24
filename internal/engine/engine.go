// Package engine runs one render pass over the registry: resolve, expand,
// dedupe, apply the title template, sanitise and sort, with the hook stages
// in between. Sinks consume the Result.
//
// A pass always starts from a fresh registry snapshot, so passes may be
// requested as often as needed and never carry state from one to the next.
package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/internal/plugins"
	"github.com/conneroisu/templhead/internal/registry"
	"github.com/conneroisu/templhead/internal/sanitize"
	"github.com/conneroisu/templhead/internal/tags"
)

// Options configure an Engine.
type Options struct {
	Expand tags.ExpandOptions
	Logger logging.Logger
}

// Engine builds tag lists from a registry.
type Engine struct {
	registry *registry.Registry
	hooks    *plugins.Manager
	opts     Options
	logger   logging.Logger
}

// New creates an engine over reg. hooks may be nil.
func New(reg *registry.Registry, hooks *plugins.Manager, opts Options) *Engine {
	if hooks == nil {
		hooks = plugins.NewManager()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		registry: reg,
		hooks:    hooks,
		opts:     opts,
		logger:   logger.WithComponent("engine"),
	}
}

// Hooks returns the engine's hook manager.
func (e *Engine) Hooks() *plugins.Manager {
	return e.hooks
}

// Result is the outcome of a render pass.
type Result struct {
	// Title is nil when no title survives.
	Title     *tags.Tag
	HTMLAttrs map[string]any
	BodyAttrs map[string]any
	// Tags holds every other tag in final order.
	Tags []*tags.Tag
}

// HeadTags returns the tags rendered inside <head>.
func (r *Result) HeadTags() []*tags.Tag {
	var out []*tags.Tag
	for _, t := range r.Tags {
		if !t.Options.Body {
			out = append(out, t)
		}
	}
	return out
}

// BodyTags returns the tags rendered at the end of <body>.
func (r *Result) BodyTags() []*tags.Tag {
	var out []*tags.Tag
	for _, t := range r.Tags {
		if t.Options.Body {
			out = append(out, t)
		}
	}
	return out
}

// ResolveEntries snapshots the registry, resolves every entry and runs the
// entries:resolved hooks.
func (e *Engine) ResolveEntries(ctx context.Context) ([]*registry.Entry, error) {
	snapshot := e.registry.Snapshot()
	entries := make([]*registry.Entry, len(snapshot))
	for i := range snapshot {
		entry := &snapshot[i]
		entry.Resolve()
		if unknown := tags.UnknownFields(entry.ResolvedInput); len(unknown) > 0 {
			e.logger.Debug(ctx, "Dropping unknown declaration fields", "entry", entry.ID, "fields", unknown)
		}
		entries[i] = entry
	}

	if err := e.hooks.CallEntriesResolved(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// BuildTags turns resolved entries into the final ordered tag list and runs
// the tags:resolved hooks.
func (e *Engine) BuildTags(ctx context.Context, entries []*registry.Entry) ([]*tags.Tag, error) {
	sources := make([]tags.Source, 0, len(entries))
	var all []*tags.Tag
	for _, entry := range entries {
		src := tags.Source{EntryID: entry.ID, Input: entry.ResolvedInput, Raw: entry.Options.Raw}
		sources = append(sources, src)
		all = append(all, tags.Expand(src, e.opts.Expand)...)
	}

	deduped := tags.Dedupe(all)
	deduped = tags.ApplyTitleTemplate(deduped, tags.FindTitleTemplate(sources))
	sanitize.Tags(deduped)
	tags.SortByPriority(deduped)

	tc := &plugins.TagsContext{Tags: deduped}
	if err := e.hooks.CallTagsResolved(ctx, tc); err != nil {
		return nil, err
	}
	return tc.Tags, nil
}

// Render runs a full pass.
func (e *Engine) Render(ctx context.Context) (*Result, error) {
	perf := logging.StartOperation(e.logger, "render")

	entries, err := e.ResolveEntries(ctx)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	built, err := e.BuildTags(ctx, entries)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	res := Split(built)
	perf.End(ctx, "entries", len(entries), "tags", len(res.Tags))
	return res, nil
}

// Split separates the title and attribute tags from an ordered tag list.
func Split(list []*tags.Tag) *Result {
	res := &Result{
		HTMLAttrs: map[string]any{},
		BodyAttrs: map[string]any{},
	}
	var htmlAttrs, bodyAttrs []*tags.Tag
	for _, t := range list {
		switch t.Name {
		case tags.NameTitle:
			res.Title = t
		case tags.NameHTMLAttrs:
			htmlAttrs = append(htmlAttrs, t)
		case tags.NameBodyAttrs:
			bodyAttrs = append(bodyAttrs, t)
		default:
			res.Tags = append(res.Tags, t)
		}
	}
	res.HTMLAttrs = MergeAttrs(htmlAttrs)
	res.BodyAttrs = MergeAttrs(bodyAttrs)
	return res
}

// MergeAttrs folds attribute tags in registration order. Later values win,
// false removes an attribute, and class and style accumulate.
func MergeAttrs(list []*tags.Tag) map[string]any {
	ordered := append([]*tags.Tag(nil), list...)
	tags.SortByOrigin(ordered)

	out := map[string]any{}
	for _, t := range ordered {
		names := make([]string, 0, len(t.Props))
		for k := range t.Props {
			names = append(names, k)
		}
		sort.Strings(names)

		for _, name := range names {
			v := t.Props[name]
			if b, ok := v.(bool); ok && !b {
				delete(out, name)
				continue
			}
			s, isString := v.(string)
			prev, hasPrev := out[name].(string)
			switch {
			case isString && hasPrev && name == "class":
				out[name] = mergeClass(prev, s)
			case isString && hasPrev && name == "style":
				out[name] = mergeStyle(prev, s)
			default:
				out[name] = v
			}
		}
	}
	return out
}

func mergeClass(a, b string) string {
	seen := map[string]bool{}
	var out []string
	for _, c := range append(strings.Fields(a), strings.Fields(b)...) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return strings.Join(out, " ")
}

func mergeStyle(a, b string) string {
	var out []string
	for _, s := range []string{a, b} {
		for _, decl := range strings.Split(s, ";") {
			if decl = strings.TrimSpace(decl); decl != "" {
				out = append(out, decl)
			}
		}
	}
	return strings.Join(out, "; ")
}
