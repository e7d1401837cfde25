package selector

import "strings"

// AliasProvider reads the externally declared name of a field, if any.
type AliasProvider interface {
	Alias(f Field) (string, bool)
}

// AliasFunc adapts a function to AliasProvider.
type AliasFunc func(f Field) (string, bool)

func (fn AliasFunc) Alias(f Field) (string, bool) { return fn(f) }

// TagAlias reads the alias from the struct tag key. Options after the first
// comma are ignored; an empty name or "-" means no alias.
func TagAlias(key string) AliasProvider {
	return AliasFunc(func(f Field) (string, bool) {
		tag, ok := f.Tag.Lookup(key)
		if !ok {
			return "", false
		}
		if idx := strings.IndexByte(tag, ','); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == "" || tag == "-" {
			return "", false
		}
		return tag, true
	})
}

// DefaultAliasProviders are consulted in order: the restql tag, then the
// json tag.
func DefaultAliasProviders() []AliasProvider {
	return []AliasProvider{TagAlias("restql"), TagAlias("json")}
}

// Handle is a resolved attribute: Field.Name reads the value, Name is the
// key it is reported under.
type Handle struct {
	Field Field
	Name  string
}

// Resolver maps path segments to node attributes. A Resolver is immutable
// and safe for concurrent use.
type Resolver struct {
	providers []AliasProvider
	fold      bool
}

// NewResolver returns a resolver consulting providers in the given order.
func NewResolver(providers ...AliasProvider) *Resolver {
	cp := make([]AliasProvider, len(providers))
	copy(cp, providers)
	return &Resolver{providers: cp}
}

// alias returns the first alias any provider declares for f.
func (r *Resolver) alias(f Field) (string, bool) {
	for _, p := range r.providers {
		if name, ok := p.Alias(f); ok {
			return name, true
		}
	}
	return "", false
}

func (r *Resolver) handle(f Field) Handle {
	if name, ok := r.alias(f); ok {
		return Handle{Field: f, Name: name}
	}
	return Handle{Field: f, Name: f.Name}
}

// Resolve finds the attribute of n addressed by segment: first a field whose
// alias equals segment, then a field literally named segment, then, when
// name folding is enabled, a case-insensitive literal match.
func (r *Resolver) Resolve(n Node, segment string) (Handle, error) {
	fields := n.Fields()
	for _, f := range fields {
		if name, ok := r.alias(f); ok && name == segment {
			return Handle{Field: f, Name: name}, nil
		}
	}
	for _, f := range fields {
		if f.Name == segment {
			return r.handle(f), nil
		}
	}
	if r.fold {
		for _, f := range fields {
			if strings.EqualFold(f.Name, segment) {
				return r.handle(f), nil
			}
		}
	}
	return Handle{}, &FieldNotFoundError{Field: segment}
}
