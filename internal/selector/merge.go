package selector

// merge folds in into acc and returns acc. Nested maps and lists are
// rebuilt rather than mutated, so values shared with the source graph are
// never written to.
//
// A raw value selected whole wins over a projection of the same key, in
// either order.
func merge(acc, in map[string]any) (map[string]any, error) {
	for key, iv := range in {
		av, ok := acc[key]
		if !ok {
			acc[key] = iv
			continue
		}
		v, err := mergeValue(key, av, iv)
		if err != nil {
			return nil, err
		}
		acc[key] = v
	}
	return acc, nil
}

func mergeValue(key string, a, b any) (any, error) {
	if _, ok := a.(whole); ok {
		return a, nil
	}
	if _, ok := b.(whole); ok {
		return b, nil
	}
	switch x := a.(type) {
	case map[string]any:
		if y, ok := b.(map[string]any); ok {
			return merge(cloneMap(x), y)
		}
	case []any:
		if y, ok := b.([]any); ok {
			return mergeLists(key, x, y)
		}
	}
	return b, nil
}

// mergeLists merges two projections of the same collection element-wise.
func mergeLists(key string, a, b []any) ([]any, error) {
	if len(a) != len(b) {
		return nil, &MergeError{Key: key, Want: len(a), Got: len(b)}
	}
	out := make([]any, len(a))
	for i := range a {
		v, err := mergeValue(key, a[i], b[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
