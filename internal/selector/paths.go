package selector

import "strings"

const (
	fieldSeparator   = ","
	segmentSeparator = "."
)

// Path is a non-empty sequence of attribute names, e.g. author.pet.age.
type Path []string

func (p Path) String() string { return strings.Join(p, segmentSeparator) }

// ParsePaths normalizes field input into paths. Every argument is split on
// commas, so variadic strings, an expanded slice and a single comma-joined
// string are equivalent. Pieces are trimmed and blank pieces dropped; input
// order and duplicates are kept.
func ParsePaths(fields ...string) ([]Path, error) {
	var paths []Path
	for _, f := range fields {
		for _, raw := range strings.Split(f, fieldSeparator) {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			p, err := ParsePath(raw)
			if err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoFieldsInformed
	}
	return paths, nil
}

// ParsePath splits one trimmed dotted path into its segments.
func ParsePath(raw string) (Path, error) {
	segments := strings.Split(raw, segmentSeparator)
	for _, s := range segments {
		if s == "" {
			return nil, &InvalidPathError{Path: raw}
		}
	}
	return Path(segments), nil
}
