package selector

// projector walks one path through a value and builds the single-path
// result.
type projector struct {
	resolver *Resolver
}

// whole wraps the raw value of a last segment until all paths are merged,
// so merge can tell it from a projection built by the projector.
type whole struct{ v any }

// project returns map[string]any for an object, []any with one entry per
// element for a list, and nil for a null value. The last segment's value
// is reported as is, wrapped in whole.
func (p *projector) project(path Path, v any) (any, error) {
	val := classify(v)
	switch val.kind {
	case KindNull:
		return nil, nil
	case KindList:
		out := make([]any, len(val.items))
		for i, item := range val.items {
			r, err := p.project(path, item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case KindObject:
		h, err := p.resolver.Resolve(val.node, path[0])
		if err != nil {
			return nil, err
		}
		raw := val.node.Get(h.Field.Name)
		if len(path) == 1 {
			return map[string]any{h.Name: whole{raw}}, nil
		}
		child, err := p.project(path[1:], raw)
		if err != nil {
			return nil, err
		}
		return map[string]any{h.Name: child}, nil
	default:
		// a scalar has no attributes left to walk into
		return nil, &FieldNotFoundError{Field: path[0]}
	}
}

// unwrap replaces every whole in a merged result by its raw value. Only
// containers built by the projector are walked, so source values are left
// untouched.
func unwrap(v any) any {
	switch x := v.(type) {
	case whole:
		return x.v
	case map[string]any:
		for k, e := range x {
			x[k] = unwrap(e)
		}
	case []any:
		for i, e := range x {
			x[i] = unwrap(e)
		}
	}
	return v
}
