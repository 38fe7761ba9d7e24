// Package head lets independent parts of an application declare document
// head metadata and renders one consistent result.
//
// Each part pushes a declaration (an Input) and keeps the returned Handle to
// update or remove it. A render pass merges every declaration: tags sharing
// an identity collapse to the last registered one, the title template is
// applied, unsafe content is stripped from non-raw entries, and tags are
// ordered by priority. The result is delivered either as strings for the
// initial page (RenderToString) or as a reconciliation of a parsed document
// (UpdateDOM).
//
//	h := head.New()
//	h.Push(head.Input{
//		"title":         "Home",
//		"titleTemplate": "%s - Site",
//		"meta":          []head.Attrs{{"name": "description", "content": "Welcome"}},
//	})
//	out, err := h.RenderToString(ctx)
package head

import (
	"context"
	"sync"

	"golang.org/x/net/html"

	"github.com/conneroisu/templhead/internal/dom"
	"github.com/conneroisu/templhead/internal/engine"
	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/internal/plugins"
	"github.com/conneroisu/templhead/internal/registry"
	"github.com/conneroisu/templhead/internal/renderer"
	"github.com/conneroisu/templhead/internal/tags"
)

type (
	// Input is a head declaration.
	Input = tags.Input
	// Attrs is one element of a sequence field such as meta or link.
	Attrs = tags.Attrs
	// TemplateFunc computes the final title from the declared one.
	TemplateFunc = tags.TemplateFunc
	// Tag is a tag record of a render pass.
	Tag = tags.Tag
	// Entry is a registered declaration.
	Entry = registry.Entry
	// Handle updates or removes a pushed declaration.
	Handle = registry.Handle
	// SSRHead holds the string fragments of a render.
	SSRHead = renderer.SSRHead
	// Report describes a document reconciliation.
	Report = dom.Report
	// Result is a render pass before serialisation.
	Result = engine.Result
	// Plugin bundles hook callbacks.
	Plugin = plugins.Plugin
	// Hooks registers bare hook callbacks.
	Hooks = plugins.Manager
	// TagsContext is passed to tags:resolved hooks.
	TagsContext = plugins.TagsContext
	// DOMRenderContext is passed to dom:beforeRender hooks.
	DOMRenderContext = plugins.DOMRenderContext
	// Logger is the structured logger used by the head.
	Logger = logging.Logger
)

// Head owns a registry of declarations and renders them.
type Head struct {
	registry *registry.Registry
	engine   *engine.Engine
	logger   logging.Logger

	// mu serialises document writes. It is never held while hooks run, so a
	// hook may request another pass.
	mu sync.Mutex
}

type settings struct {
	expand  tags.ExpandOptions
	logger  logging.Logger
	plugins []plugins.Plugin
}

// Option configures a Head.
type Option func(*settings)

// WithLegacyAliases toggles rewriting hid and vmid to key. It is on by
// default.
func WithLegacyAliases(enabled bool) Option {
	return func(s *settings) { s.expand.LegacyAliases = enabled }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithPlugins installs plugins at construction.
func WithPlugins(ps ...Plugin) Option {
	return func(s *settings) { s.plugins = append(s.plugins, ps...) }
}

// New creates a Head. Plugins passed with WithPlugins must have unique
// names; a duplicate is ignored and logged.
func New(opts ...Option) *Head {
	s := &settings{expand: tags.DefaultExpandOptions}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	reg := registry.NewRegistry()
	hooks := plugins.NewManager()
	h := &Head{
		registry: reg,
		engine:   engine.New(reg, hooks, engine.Options{Expand: s.expand, Logger: s.logger}),
		logger:   s.logger.WithComponent("head"),
	}
	for _, p := range s.plugins {
		if err := h.Use(p); err != nil {
			h.logger.Warn(context.Background(), err, "Skipping plugin", "plugin", p.Name())
		}
	}
	return h
}

// PushOption configures a pushed entry.
type PushOption func(*registry.Options)

// Raw marks the entry as trusted: its tags skip sanitisation and are
// rendered verbatim.
func Raw() PushOption {
	return func(o *registry.Options) { o.Raw = true }
}

// Push registers a declaration.
func (h *Head) Push(input Input, opts ...PushOption) *Handle {
	var o registry.Options
	for _, opt := range opts {
		opt(&o)
	}
	return h.registry.Register(input, o)
}

// Remove removes the entry with the given id. Unknown ids are ignored.
func (h *Head) Remove(id int) {
	h.registry.Remove(id)
}

// Entries returns the registered entries in registration order.
func (h *Head) Entries() []Entry {
	return h.registry.Snapshot()
}

// Use installs a plugin.
func (h *Head) Use(p Plugin) error {
	return h.engine.Hooks().Use(p)
}

// Hooks returns the hook manager for registering bare callbacks.
func (h *Head) Hooks() *Hooks {
	return h.engine.Hooks()
}

// Watch returns a channel receiving an event for every registry change.
func (h *Head) Watch() <-chan registry.EntryEvent {
	return h.registry.Watch()
}

// UnWatch stops and closes a channel returned by Watch.
func (h *Head) UnWatch(ch <-chan registry.EntryEvent) {
	h.registry.UnWatch(ch)
}

// Resolve runs a render pass without serialising it. Each pass works on
// its own registry snapshot, so passes may overlap or nest.
func (h *Head) Resolve(ctx context.Context) (*Result, error) {
	return h.engine.Render(ctx)
}

// RenderToString renders the head for initial page delivery.
func (h *Head) RenderToString(ctx context.Context) (SSRHead, error) {
	res, err := h.Resolve(ctx)
	if err != nil {
		return SSRHead{}, err
	}
	return renderer.Render(res), nil
}

// UpdateDOM reconciles doc with the current declarations. When a
// dom:beforeRender hook vetoes the write, doc is left untouched and the
// report has Skipped set.
func (h *Head) UpdateDOM(ctx context.Context, doc *html.Node) (Report, error) {
	res, err := h.engine.Render(ctx)
	if err != nil {
		return Report{}, err
	}

	rc := &plugins.DOMRenderContext{ShouldRender: true, Tags: res.Tags}
	if err := h.engine.Hooks().CallDOMBeforeRender(ctx, rc); err != nil {
		return Report{}, err
	}
	if !rc.ShouldRender {
		h.logger.Debug(ctx, "DOM write skipped by hook")
		return Report{Skipped: true}, nil
	}

	h.mu.Lock()
	report, err := dom.Reconcile(doc, res)
	h.mu.Unlock()
	if err != nil {
		return report, err
	}
	h.logger.Debug(ctx, "DOM updated",
		"inserted", report.Inserted,
		"removed", report.Removed,
		"kept", report.Kept,
	)
	return report, nil
}
