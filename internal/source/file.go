package source

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File serves entities decoded from a YAML or JSON document. A top-level
// mapping is keyed by its keys; a top-level sequence is keyed by the
// key field of each item.
type File struct {
	keyField string
	entities map[string]any
}

type FileOption func(*File)

// WithKeyField names the item attribute that keys a sequence document.
// The default is "id".
func WithKeyField(name string) FileOption { return func(f *File) { f.keyField = name } }

// OpenFile reads and indexes the document at path.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := ParseFile(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFile indexes an in-memory document.
func ParseFile(data []byte, opts ...FileOption) (*File, error) {
	f := &File{keyField: "id"}
	for _, o := range opts {
		o(f)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	entities, err := index(doc, f.keyField)
	if err != nil {
		return nil, err
	}
	f.entities = entities
	return f, nil
}

func index(doc any, keyField string) (map[string]any, error) {
	switch d := doc.(type) {
	case map[string]any:
		return d, nil
	case map[any]any:
		// non-string keys, e.g. numeric ids
		out := make(map[string]any, len(d))
		for k, v := range d {
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	case []any:
		out := make(map[string]any, len(d))
		for i, item := range d {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d: expected a mapping, got %T", i, item)
			}
			k, ok := m[keyField]
			if !ok || k == nil {
				return nil, fmt.Errorf("item %d: missing key field %q", i, keyField)
			}
			key := fmt.Sprint(k)
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("item %d: duplicate key %q", i, key)
			}
			out[key] = m
		}
		return out, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("expected a mapping or a sequence at the top level, got %T", doc)
	}
}

// Len returns the number of indexed entities.
func (f *File) Len() int { return len(f.entities) }

func (f *File) Fetch(_ context.Context, key string) (any, error) {
	e, ok := f.entities[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return e, nil
}

// Decode parses a single YAML or JSON document into plain Go values.
func Decode(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
