// Package value unwraps dynamic declaration values into plain snapshots.
//
// A head declaration may carry values that change between render passes:
// a Ref shared with the code that owns the data, a Func evaluated lazily, or
// any type implementing Resolvable. Resolve walks sequences and mappings of
// any shape and returns a tree made only of plain values, []any and
// map[string]any. Resolution never fails: a value of an unknown type is
// considered plain and returned as is.
package value

import (
	"reflect"
	"sync"
)

// TitleTemplateKey is the only declaration key whose callable value is kept
// rather than evaluated. The template is applied to the final title later.
const TitleTemplateKey = "titleTemplate"

// maxDepth bounds unwrapping of values that resolve to themselves.
const maxDepth = 64

// Resolvable is a deferred value. Resolve may return another Resolvable.
type Resolvable interface {
	Resolve() any
}

// Func is a zero-argument deferred value.
type Func func() any

// Resolve calls f.
func (f Func) Resolve() any {
	if f == nil {
		return nil
	}
	return f()
}

// Ref is a mutable cell safe for concurrent Get/Set. It stands in for the
// reactive primitives of a host framework: the owner calls Set and the next
// render pass observes the new value.
type Ref[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewRef creates a Ref holding v.
func NewRef[T any](v T) *Ref[T] {
	return &Ref[T]{v: v}
}

// Get returns the current value.
func (r *Ref[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v
}

// Set replaces the current value.
func (r *Ref[T]) Set(v T) {
	r.mu.Lock()
	r.v = v
	r.mu.Unlock()
}

// Resolve implements Resolvable.
func (r *Ref[T]) Resolve() any {
	return r.Get()
}

// Resolve returns a plain snapshot of v.
func Resolve(v any) any {
	return resolve(v, 0)
}

// ResolveInput resolves every key of a declaration. The titleTemplate key
// only has its Resolvable wrappers removed so a template callable survives.
func ResolveInput(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if k == TitleTemplateKey {
			out[k] = unwrap(v, 0)
			continue
		}
		out[k] = resolve(v, 0)
	}
	return out
}

// IsDynamic reports whether v contains any deferred value.
func IsDynamic(v any) bool {
	return isDynamic(reflect.ValueOf(v), 0)
}

func unwrap(v any, depth int) any {
	for depth < maxDepth {
		r, ok := v.(Resolvable)
		if !ok {
			return v
		}
		v = r.Resolve()
		depth++
	}
	return v
}

func resolve(v any, depth int) any {
	if depth >= maxDepth {
		return v
	}

	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int, int64, float64:
		return t
	case Resolvable:
		return resolve(t.Resolve(), depth+1)
	case func() any:
		return resolve(t(), depth+1)
	case func() string:
		return t()
	case func() bool:
		return t()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = resolve(e, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = resolve(e, depth+1)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		// []byte is text, not a sequence.
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = resolve(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = resolve(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		// Pointers to scalars are how optional values are usually spelled.
		switch rv.Elem().Kind() {
		case reflect.String, reflect.Bool, reflect.Int, reflect.Int64, reflect.Float64:
			return resolve(rv.Elem().Interface(), depth+1)
		}
	}
	return v
}

func isDynamic(rv reflect.Value, depth int) bool {
	if !rv.IsValid() || depth >= maxDepth {
		return false
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	if rv.CanInterface() {
		switch rv.Interface().(type) {
		case Resolvable, func() any, func() string, func() bool:
			return true
		}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if isDynamic(rv.Index(i), depth+1) {
				return true
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if isDynamic(iter.Value(), depth+1) {
				return true
			}
		}
	}
	return false
}
