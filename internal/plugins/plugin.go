// Package plugins runs the extension callbacks of a render pass.
//
// There are three stages:
//
//   - entries:resolved, after every entry has a plain snapshot. Callbacks
//     may rewrite the resolved entries in place.
//   - tags:resolved, after tags are deduplicated, sanitised and ordered.
//     Callbacks may rewrite the tag list.
//   - dom:beforeRender, immediately before a document write. Setting
//     DOMRenderContext.ShouldRender to false skips the write for this pass.
//
// Callbacks of a stage run one after another in registration order; the
// first error aborts the pass. A Plugin bundles callbacks for any subset of
// the stages and is installed with Manager.Use.
package plugins

import (
	"context"

	"github.com/conneroisu/templhead/internal/registry"
	"github.com/conneroisu/templhead/internal/tags"
)

// Stage names, used in errors and logs.
const (
	StageEntriesResolved = "entries:resolved"
	StageTagsResolved    = "tags:resolved"
	StageDOMBeforeRender = "dom:beforeRender"
)

// TagsContext is passed to tags:resolved callbacks.
type TagsContext struct {
	Tags []*tags.Tag
}

// DOMRenderContext is passed to dom:beforeRender callbacks.
type DOMRenderContext struct {
	// ShouldRender starts true. Any callback may veto the write.
	ShouldRender bool
	Tags         []*tags.Tag
}

// EntriesResolvedHook runs after entries are resolved.
type EntriesResolvedHook func(ctx context.Context, entries []*registry.Entry) error

// TagsResolvedHook runs after the tag list is built and ordered.
type TagsResolvedHook func(ctx context.Context, tc *TagsContext) error

// DOMBeforeRenderHook runs before the document is written.
type DOMBeforeRenderHook func(ctx context.Context, rc *DOMRenderContext) error

// Plugin is a named bundle of hooks.
type Plugin interface {
	// Name returns the unique name of the plugin
	Name() string
}

// EntriesPlugin extends Plugin with the entries:resolved stage.
type EntriesPlugin interface {
	Plugin
	EntriesResolved(ctx context.Context, entries []*registry.Entry) error
}

// TagsPlugin extends Plugin with the tags:resolved stage.
type TagsPlugin interface {
	Plugin
	TagsResolved(ctx context.Context, tc *TagsContext) error
}

// DOMPlugin extends Plugin with the dom:beforeRender stage.
type DOMPlugin interface {
	Plugin
	DOMBeforeRender(ctx context.Context, rc *DOMRenderContext) error
}
