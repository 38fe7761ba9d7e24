// Package loader reads head declarations from YAML files and keeps them
// registered with a Head.
//
// A file holds one or more YAML documents. A document is either a single
// declaration:
//
//	title: Home
//	meta:
//	  - name: description
//	    content: Welcome
//
// or a list of entries, which may be marked raw:
//
//	entries:
//	  - head: {title: Home}
//	  - raw: true
//	    head:
//	      script: [{innerHTML: "window.ready = true"}]
//
// JSON is valid YAML, so .json files work as well.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/templhead/internal/errors"
	"github.com/conneroisu/templhead/internal/logging"
	"github.com/conneroisu/templhead/pkg/head"
)

// Declaration is one entry read from a file.
type Declaration struct {
	Raw  bool       `yaml:"raw"`
	Head head.Input `yaml:"head"`
}

const entriesKey = "entries"

// Parse decodes every document of r. name is used in errors.
func Parse(r io.Reader, name string) ([]Declaration, error) {
	dec := yaml.NewDecoder(r)

	var out []Declaration
	for doc := 1; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, decodeError(name, doc, err)
		}

		decls, err := decodeDocument(&node)
		if err != nil {
			return nil, decodeError(name, doc, err)
		}
		out = append(out, decls...)
	}
	return out, nil
}

func decodeDocument(node *yaml.Node) ([]Declaration, error) {
	var probe map[string]any
	if err := node.Decode(&probe); err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, nil
	}

	if _, ok := probe[entriesKey]; !ok {
		return []Declaration{{Head: head.Input(probe)}}, nil
	}

	var list struct {
		Entries []Declaration `yaml:"entries"`
	}
	if err := node.Decode(&list); err != nil {
		return nil, err
	}
	for i, d := range list.Entries {
		if d.Head == nil {
			return nil, fmt.Errorf("entry %d has no head declaration", i+1)
		}
	}
	return list.Entries, nil
}

func decodeError(name string, doc int, err error) error {
	return errors.NewValidationError(errors.ErrCodeDecodeFailed,
		fmt.Sprintf("document %d: %v", doc, err)).WithFile(name)
}

// ParseFile reads and decodes a declaration file.
func ParseFile(path string) ([]Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.ErrCodeFileNotFound
		if !os.IsNotExist(err) {
			code = errors.ErrCodeInternalError
		}
		return nil, errors.NewIOError(code, "cannot read declaration file", err).WithFile(path)
	}
	return Parse(bytes.NewReader(data), path)
}

// Loader keeps the declarations of a set of files registered with a Head.
type Loader struct {
	head    *head.Head
	logger  logging.Logger
	handles map[string][]*head.Handle
	order   []string
	mu      sync.Mutex
}

// New creates a loader registering into h.
func New(h *head.Head, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loader{
		head:    h,
		logger:  logger.WithComponent("loader"),
		handles: make(map[string][]*head.Handle),
	}
}

// Load registers every file in order. Files already loaded are reloaded.
func (l *Loader) Load(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := l.Reload(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// Reload re-reads path and replaces its entries. Entries keep their
// registry position where the file still declares as many; surplus old
// entries are removed and new ones appended. On error the previous entries
// stay registered.
func (l *Loader) Reload(ctx context.Context, path string) error {
	decls, err := ParseFile(path)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	old, known := l.handles[path]
	if !known {
		l.order = append(l.order, path)
	}

	handles := make([]*head.Handle, 0, len(decls))
	for i, d := range decls {
		// Raw is fixed at registration, so a changed flag re-registers.
		if i < len(old) && l.rawOf(old[i]) == d.Raw {
			old[i].Update(d.Head)
			handles = append(handles, old[i])
			old[i] = nil
			continue
		}
		handles = append(handles, l.push(d))
	}
	for _, h := range old {
		if h != nil {
			h.Remove()
		}
	}
	l.handles[path] = handles

	l.logger.Debug(ctx, "Loaded declarations", "file", path, "entries", len(handles))
	return nil
}

func (l *Loader) push(d Declaration) *head.Handle {
	if d.Raw {
		return l.head.Push(d.Head, head.Raw())
	}
	return l.head.Push(d.Head)
}

func (l *Loader) rawOf(h *head.Handle) bool {
	for _, e := range l.head.Entries() {
		if e.ID == h.ID() {
			return e.Options.Raw
		}
	}
	return false
}

// Unload removes the entries of path.
func (l *Loader) Unload(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.handles[path] {
		h.Remove()
	}
	delete(l.handles, path)
	for i, p := range l.order {
		if p == path {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Files returns the loaded files in load order.
func (l *Loader) Files() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.order...)
}
