package selector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParsePaths(t *testing.T) {
	cases := []struct {
		name   string
		fields []string
		want   []Path
	}{
		{"variadic", []string{"id", "author.id"}, []Path{{"id"}, {"author", "id"}}},
		{"comma joined", []string{"id,author.id"}, []Path{{"id"}, {"author", "id"}}},
		{"spaces and blanks", []string{" id ,, author.id ", "", "  "}, []Path{{"id"}, {"author", "id"}}},
		{"mixed forms keep order", []string{"b,a", "c"}, []Path{{"b"}, {"a"}, {"c"}}},
		{"duplicates kept", []string{"id", "id"}, []Path{{"id"}, {"id"}}},
		{"deep", []string{"comments.replies.author.pet.age"}, []Path{{"comments", "replies", "author", "pet", "age"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePaths(tc.fields...)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ParsePaths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePaths_Errors(t *testing.T) {
	_, err := ParsePaths()
	require.ErrorIs(t, err, ErrNoFieldsInformed)

	_, err = ParsePaths(",", " ")
	require.ErrorIs(t, err, ErrNoFieldsInformed)

	for _, raw := range []string{"author..id", "author.", ".id", "id, pet..age"} {
		_, err := ParsePaths(raw)
		var ipe *InvalidPathError
		require.ErrorAs(t, err, &ipe, raw)
	}
}

func TestPath_String(t *testing.T) {
	p, err := ParsePath("author.pet.age")
	require.NoError(t, err)
	require.Equal(t, "author.pet.age", p.String())
}
