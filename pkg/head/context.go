package head

import (
	"context"

	"github.com/conneroisu/templhead/internal/errors"
)

type ctxKey struct{}

// WithHead installs h into ctx.
func WithHead(ctx context.Context, h *Head) context.Context {
	return context.WithValue(ctx, ctxKey{}, h)
}

// FromContext returns the head installed in ctx. It fails with a
// configuration error when none was installed.
func FromContext(ctx context.Context) (*Head, error) {
	if h, ok := ctx.Value(ctxKey{}).(*Head); ok && h != nil {
		return h, nil
	}
	return nil, errors.ErrNotInstalled
}

// Push registers a declaration with the head installed in ctx.
func Push(ctx context.Context, input Input, opts ...PushOption) (*Handle, error) {
	h, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.Push(input, opts...), nil
}
