package language

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/restql/internal/selector"
)

func TestParseSelection(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []selector.Path
	}{
		{
			name: "flat",
			src:  "{ id text }",
			want: []selector.Path{{"id"}, {"text"}},
		},
		{
			name: "nested",
			src:  "{ id author { id email pet { age } } }",
			want: []selector.Path{{"id"}, {"author", "id"}, {"author", "email"}, {"author", "pet", "age"}},
		},
		{
			name: "without braces",
			src:  "id, comments { id replies { text } }",
			want: []selector.Path{{"id"}, {"comments", "id"}, {"comments", "replies", "text"}},
		},
		{
			name: "field starting with a keyword",
			src:  "queryCount mutations",
			want: []selector.Path{{"queryCount"}, {"mutations"}},
		},
		{
			name: "query keyword",
			src:  "query { author { nick_name } }",
			want: []selector.Path{{"author", "nick_name"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSelection(tc.src)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ParseSelection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSelection_Errors(t *testing.T) {
	_, err := ParseSelection("   ")
	require.ErrorIs(t, err, selector.ErrNoFieldsInformed)

	for _, src := range []string{
		"{ a: id }",
		"{ author(id: 1) { id } }",
		"{ id @skip(if: true) }",
		"{ ...F } fragment F on Post { id }",
		"{ ... on Post { id } }",
		"mutation { id }",
		"{ id } { text }",
	} {
		_, err := ParseSelection(src)
		var se *SyntaxError
		require.ErrorAs(t, err, &se, src)
	}

	_, err = ParseSelection("{ author { }")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	require.NotNil(t, se.Pos)
}

func TestFormatSelection_RoundTrip(t *testing.T) {
	paths := []selector.Path{{"id"}, {"author", "id"}, {"author", "pet", "age"}, {"comments", "text"}}

	src := FormatSelection(paths)
	got, err := ParseSelection(src)
	require.NoError(t, err)
	if diff := cmp.Diff(paths, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatSelection_LeafNextToSubfields(t *testing.T) {
	paths := []selector.Path{{"author"}, {"author", "id"}}

	got, err := ParseSelection(FormatSelection(paths))
	require.NoError(t, err)
	if diff := cmp.Diff(paths, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPaths(t *testing.T) {
	got, err := Paths([]string{"id, author.id", ""}, "{ comments { text } }")
	require.NoError(t, err)
	want := []selector.Path{{"id"}, {"author", "id"}, {"comments", "text"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Paths mismatch (-want +got):\n%s", diff)
	}

	got, err = Paths([]string{" , "}, "author")
	require.NoError(t, err)
	require.Equal(t, []selector.Path{{"author"}}, got)

	_, err = Paths(nil, "  ")
	require.ErrorIs(t, err, selector.ErrNoFieldsInformed)

	_, err = Paths([]string{"a..b"}, "")
	var ipe *selector.InvalidPathError
	require.ErrorAs(t, err, &ipe)

	_, err = Paths(nil, "{ a(x: 1) }")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
}
