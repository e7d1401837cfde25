package selector

import "fmt"

// Selector projects entities onto field paths. The zero value is not
// usable; construct one with New. A Selector holds no per-call state and
// may be shared between goroutines.
type Selector struct {
	resolver *Resolver
}

type Option func(*options)

type options struct {
	providers []AliasProvider
	fold      bool
}

// WithAliasProviders replaces the default alias providers. Providers are
// consulted in the given order; passing none disables alias resolution.
func WithAliasProviders(providers ...AliasProvider) Option {
	return func(o *options) { o.providers = providers }
}

// WithFoldedNames lets a segment match a literal attribute name
// case-insensitively when no exact match exists, so "author" reaches a Go
// field named Author.
func WithFoldedNames() Option { return func(o *options) { o.fold = true } }

// New creates a Selector.
func New(opts ...Option) *Selector {
	o := options{providers: DefaultAliasProviders()}
	for _, f := range opts {
		f(&o)
	}
	r := NewResolver(o.providers...)
	r.fold = o.fold
	return &Selector{resolver: r}
}

// Select projects entity onto fields. See ParsePaths for the accepted
// field forms.
func (s *Selector) Select(entity any, fields ...string) (map[string]any, error) {
	if isNullish(entity) {
		return nil, ErrEntityNotInformed
	}
	paths, err := ParsePaths(fields...)
	if err != nil {
		return nil, err
	}
	return s.SelectPaths(entity, paths)
}

// SelectPaths projects entity onto already parsed paths. Paths are applied
// strictly in order, so the first unresolvable segment in input order is
// the one reported.
func (s *Selector) SelectPaths(entity any, paths []Path) (map[string]any, error) {
	if isNullish(entity) {
		return nil, ErrEntityNotInformed
	}
	if len(paths) == 0 {
		return nil, ErrNoFieldsInformed
	}
	if k := KindOf(entity); k != KindObject {
		return nil, fmt.Errorf("%w, got %s", ErrEntityNotObject, k)
	}
	p := &projector{resolver: s.resolver}
	acc := make(map[string]any)
	for _, path := range paths {
		r, err := p.project(path, entity)
		if err != nil {
			return nil, err
		}
		acc, err = merge(acc, r.(map[string]any))
		if err != nil {
			return nil, err
		}
	}
	return unwrap(acc).(map[string]any), nil
}

// EntityQuery is the from(entity).select(fields) form.
type EntityQuery struct {
	s      *Selector
	entity any
}

// From starts a query on entity.
func (s *Selector) From(entity any) *EntityQuery { return &EntityQuery{s: s, entity: entity} }

// Select runs the query.
func (q *EntityQuery) Select(fields ...string) (map[string]any, error) {
	return q.s.Select(q.entity, fields...)
}

// FieldQuery is the select(fields).from(entity) form. A FieldQuery can be
// reused across entities.
type FieldQuery struct {
	s      *Selector
	fields []string
}

// Fields starts a query selecting fields.
func (s *Selector) Fields(fields ...string) *FieldQuery {
	cp := make([]string, len(fields))
	copy(cp, fields)
	return &FieldQuery{s: s, fields: cp}
}

// From runs the query on entity.
func (q *FieldQuery) From(entity any) (map[string]any, error) {
	return q.s.Select(entity, q.fields...)
}

var defaultSelector = New()

// Select projects entity onto fields with the default selector.
func Select(entity any, fields ...string) (map[string]any, error) {
	return defaultSelector.Select(entity, fields...)
}

// From starts a query on entity with the default selector.
func From(entity any) *EntityQuery { return defaultSelector.From(entity) }

// Fields starts a query selecting fields with the default selector.
func Fields(fields ...string) *FieldQuery { return defaultSelector.Fields(fields...) }
