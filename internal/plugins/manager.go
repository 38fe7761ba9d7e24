package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/registry"
)

type hook[F any] struct {
	owner string
	fn    F
}

// Manager holds the registered hooks of each stage.
type Manager struct {
	plugins         map[string]Plugin
	order           []string
	entriesResolved []hook[EntriesResolvedHook]
	tagsResolved    []hook[TagsResolvedHook]
	domBeforeRender []hook[DOMBeforeRenderHook]
	mu              sync.RWMutex
}

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	return &Manager{
		plugins: make(map[string]Plugin),
	}
}

// Use installs every stage a plugin implements. Plugin names are unique.
func (m *Manager) Use(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := p.Name()
	if _, exists := m.plugins[name]; exists {
		return errors.NewValidationError(errors.ErrCodeValidationFailed,
			fmt.Sprintf("plugin %s is already installed", name))
	}
	m.plugins[name] = p
	m.order = append(m.order, name)

	if ep, ok := p.(EntriesPlugin); ok {
		m.entriesResolved = append(m.entriesResolved, hook[EntriesResolvedHook]{name, ep.EntriesResolved})
	}
	if tp, ok := p.(TagsPlugin); ok {
		m.tagsResolved = append(m.tagsResolved, hook[TagsResolvedHook]{name, tp.TagsResolved})
	}
	if dp, ok := p.(DOMPlugin); ok {
		m.domBeforeRender = append(m.domBeforeRender, hook[DOMBeforeRenderHook]{name, dp.DOMBeforeRender})
	}
	return nil
}

// Plugins returns installed plugin names in installation order.
func (m *Manager) Plugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// OnEntriesResolved registers a bare entries:resolved callback.
func (m *Manager) OnEntriesResolved(fn EntriesResolvedHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entriesResolved = append(m.entriesResolved, hook[EntriesResolvedHook]{fn: fn})
}

// OnTagsResolved registers a bare tags:resolved callback.
func (m *Manager) OnTagsResolved(fn TagsResolvedHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagsResolved = append(m.tagsResolved, hook[TagsResolvedHook]{fn: fn})
}

// OnDOMBeforeRender registers a bare dom:beforeRender callback.
func (m *Manager) OnDOMBeforeRender(fn DOMBeforeRenderHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domBeforeRender = append(m.domBeforeRender, hook[DOMBeforeRenderHook]{fn: fn})
}

// CallEntriesResolved runs the entries:resolved stage.
func (m *Manager) CallEntriesResolved(ctx context.Context, entries []*registry.Entry) error {
	m.mu.RLock()
	hooks := append([]hook[EntriesResolvedHook](nil), m.entriesResolved...)
	m.mu.RUnlock()

	for _, h := range hooks {
		if err := run(ctx, StageEntriesResolved, h.owner, func() error { return h.fn(ctx, entries) }); err != nil {
			return err
		}
	}
	return nil
}

// CallTagsResolved runs the tags:resolved stage.
func (m *Manager) CallTagsResolved(ctx context.Context, tc *TagsContext) error {
	m.mu.RLock()
	hooks := append([]hook[TagsResolvedHook](nil), m.tagsResolved...)
	m.mu.RUnlock()

	for _, h := range hooks {
		if err := run(ctx, StageTagsResolved, h.owner, func() error { return h.fn(ctx, tc) }); err != nil {
			return err
		}
	}
	return nil
}

// CallDOMBeforeRender runs the dom:beforeRender stage. Every callback runs
// even after a veto so later callbacks observe the flag.
func (m *Manager) CallDOMBeforeRender(ctx context.Context, rc *DOMRenderContext) error {
	m.mu.RLock()
	hooks := append([]hook[DOMBeforeRenderHook](nil), m.domBeforeRender...)
	m.mu.RUnlock()

	for _, h := range hooks {
		if err := run(ctx, StageDOMBeforeRender, h.owner, func() error { return h.fn(ctx, rc) }); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, stage, owner string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewHookError(stage, err).WithComponent(owner)
	}
	if err := fn(); err != nil {
		return errors.NewHookError(stage, err).WithComponent(owner)
	}
	return nil
}
