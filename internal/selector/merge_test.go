package selector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	cases := []struct {
		name    string
		acc, in map[string]any
		want    map[string]any
	}{
		{
			name: "new key",
			acc:  map[string]any{"id": 1},
			in:   map[string]any{"text": "a"},
			want: map[string]any{"id": 1, "text": "a"},
		},
		{
			name: "nested maps",
			acc:  map[string]any{"author": map[string]any{"id": 1}},
			in:   map[string]any{"author": map[string]any{"pet": map[string]any{"age": 2}}},
			want: map[string]any{"author": map[string]any{"id": 1, "pet": map[string]any{"age": 2}}},
		},
		{
			name: "parallel lists",
			acc:  map[string]any{"c": []any{map[string]any{"id": 1}, map[string]any{"id": 2}}},
			in:   map[string]any{"c": []any{map[string]any{"t": "a"}, nil}},
			want: map[string]any{"c": []any{map[string]any{"id": 1, "t": "a"}, nil}},
		},
		{
			name: "lists of lists",
			acc:  map[string]any{"c": []any{[]any{map[string]any{"id": 1}}}},
			in:   map[string]any{"c": []any{[]any{map[string]any{"t": "a"}}}},
			want: map[string]any{"c": []any{[]any{map[string]any{"id": 1, "t": "a"}}}},
		},
		{
			name: "later scalar overwrites",
			acc:  map[string]any{"author": map[string]any{"id": 1}},
			in:   map[string]any{"author": "whole"},
			want: map[string]any{"author": "whole"},
		},
		{
			name: "whole value kept over later projection",
			acc:  map[string]any{"author": whole{"raw"}},
			in:   map[string]any{"author": map[string]any{"id": 1}},
			want: map[string]any{"author": whole{"raw"}},
		},
		{
			name: "whole value replaces earlier projection",
			acc:  map[string]any{"c": []any{map[string]any{"id": 1}}},
			in:   map[string]any{"c": whole{"raw"}},
			want: map[string]any{"c": whole{"raw"}},
		},
		{
			name: "later null overwrites",
			acc:  map[string]any{"author": map[string]any{"id": 1}},
			in:   map[string]any{"author": nil},
			want: map[string]any{"author": nil},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := merge(tc.acc, tc.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(whole{})); diff != "" {
				t.Fatalf("merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_LengthMismatch(t *testing.T) {
	acc := map[string]any{"c": []any{1, 2}}
	in := map[string]any{"c": []any{1}}

	_, err := merge(acc, in)
	var me *MergeError
	require.ErrorAs(t, err, &me)
	require.Equal(t, "c", me.Key)
	require.ErrorIs(t, err, ErrFieldNotFound)
}

func TestMerge_LeavesInputsIntact(t *testing.T) {
	shared := map[string]any{"id": 1}
	acc := map[string]any{"author": shared}
	in := map[string]any{"author": map[string]any{"email": "x"}}

	got, err := merge(acc, in)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": 1, "email": "x"}, got["author"])
	require.Equal(t, map[string]any{"id": 1}, shared)
}
