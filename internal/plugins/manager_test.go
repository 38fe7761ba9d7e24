package plugins

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/registry"
	"github.com/conneroisu/templhead/internal/tags"
)

type recorder struct {
	name  string
	calls *[]string
	fail  error
	veto  bool
}

func (r recorder) Name() string { return r.name }

func (r recorder) EntriesResolved(context.Context, []*registry.Entry) error {
	*r.calls = append(*r.calls, r.name+":entries")
	return r.fail
}

func (r recorder) TagsResolved(_ context.Context, tc *TagsContext) error {
	*r.calls = append(*r.calls, r.name+":tags")
	tc.Tags = append(tc.Tags, &tags.Tag{Name: tags.NameMeta})
	return r.fail
}

func (r recorder) DOMBeforeRender(_ context.Context, rc *DOMRenderContext) error {
	*r.calls = append(*r.calls, fmt.Sprintf("%s:dom:%t", r.name, rc.ShouldRender))
	if r.veto {
		rc.ShouldRender = false
	}
	return r.fail
}

type namedOnly string

func (n namedOnly) Name() string { return string(n) }

func TestUseRejectsDuplicateNames(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Use(namedOnly("a")))
	require.NoError(t, m.Use(namedOnly("b")))

	err := m.Use(namedOnly("a"))
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Plugins())
}

func TestStagesRunInOrder(t *testing.T) {
	var calls []string
	m := NewManager()
	require.NoError(t, m.Use(recorder{name: "first", calls: &calls, veto: true}))
	require.NoError(t, m.Use(recorder{name: "second", calls: &calls}))
	ctx := context.Background()

	require.NoError(t, m.CallEntriesResolved(ctx, nil))

	tc := &TagsContext{}
	require.NoError(t, m.CallTagsResolved(ctx, tc))
	assert.Len(t, tc.Tags, 2)

	rc := &DOMRenderContext{ShouldRender: true}
	require.NoError(t, m.CallDOMBeforeRender(ctx, rc))
	assert.False(t, rc.ShouldRender)

	assert.Equal(t, []string{
		"first:entries", "second:entries",
		"first:tags", "second:tags",
		"first:dom:true", "second:dom:false",
	}, calls)
}

func TestFirstErrorAborts(t *testing.T) {
	var calls []string
	boom := fmt.Errorf("boom")
	m := NewManager()
	require.NoError(t, m.Use(recorder{name: "bad", calls: &calls, fail: boom}))
	require.NoError(t, m.Use(recorder{name: "never", calls: &calls}))

	err := m.CallTagsResolved(context.Background(), &TagsContext{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, errors.IsHookError(err))

	var te *errors.TemplheadError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "bad", te.Component)
	assert.Equal(t, StageTagsResolved, te.Context["stage"])
	assert.Equal(t, []string{"bad:tags"}, calls)
}

func TestBareHooks(t *testing.T) {
	m := NewManager()
	m.OnTagsResolved(func(_ context.Context, tc *TagsContext) error {
		tc.Tags = nil
		return nil
	})
	tc := &TagsContext{Tags: []*tags.Tag{{Name: tags.NameMeta}}}
	require.NoError(t, m.CallTagsResolved(context.Background(), tc))
	assert.Empty(t, tc.Tags)
}

func TestCancelledContext(t *testing.T) {
	m := NewManager()
	called := false
	m.OnEntriesResolved(func(context.Context, []*registry.Entry) error {
		called = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.CallEntriesResolved(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
