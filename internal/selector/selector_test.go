package selector

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSelect_Result(t *testing.T) {
	post := newPost()
	c0, c1 := post.Comments[0], post.Comments[1]

	cases := []struct {
		name   string
		fields []string
		want   map[string]any
	}{
		{
			name:   "one leaf child",
			fields: []string{"id"},
			want:   map[string]any{"id": post.ID},
		},
		{
			name:   "multiple leaf children",
			fields: []string{"id", "text", "datePublished"},
			want:   map[string]any{"id": post.ID, "text": post.Text, "datePublished": post.DatePublished},
		},
		{
			name:   "child with descendants returned whole",
			fields: []string{"author"},
			want:   map[string]any{"author": post.Author},
		},
		{
			name:   "leaf descendant",
			fields: []string{"author.id"},
			want:   map[string]any{"author": map[string]any{"id": post.Author.ID}},
		},
		{
			name:   "sibling leaf descendants",
			fields: []string{"id", "author.id", "author.email"},
			want: map[string]any{
				"id":     post.ID,
				"author": map[string]any{"id": post.Author.ID, "email": post.Author.Email},
			},
		},
		{
			name:   "deep descendant",
			fields: []string{"author.pet.age"},
			want:   map[string]any{"author": map[string]any{"pet": map[string]any{"age": post.Author.Pet.Age}}},
		},
		{
			name:   "multiple hierarchical levels",
			fields: []string{"id", "text", "author.id", "author.email", "author.pet.age", "author.pet.name"},
			want: map[string]any{
				"id":   post.ID,
				"text": post.Text,
				"author": map[string]any{
					"id":    post.Author.ID,
					"email": post.Author.Email,
					"pet":   map[string]any{"age": post.Author.Pet.Age, "name": post.Author.Pet.Name},
				},
			},
		},
		{
			name:   "comma separated with blanks",
			fields: []string{" id , text , author.pet.name "},
			want: map[string]any{
				"id":     post.ID,
				"text":   post.Text,
				"author": map[string]any{"pet": map[string]any{"name": post.Author.Pet.Name}},
			},
		},
		{
			name:   "list field returned whole",
			fields: []string{"comments"},
			want:   map[string]any{"comments": post.Comments},
		},
		{
			name:   "scalar list field",
			fields: []string{"author.phoneNumbers", "author.books"},
			want: map[string]any{"author": map[string]any{
				"phoneNumbers": post.Author.PhoneNumbers,
				"books":        post.Author.Books,
			}},
		},
		{
			name:   "leaf inside list",
			fields: []string{"comments.id"},
			want:   map[string]any{"comments": []any{map[string]any{"id": c0.ID}, map[string]any{"id": c1.ID}}},
		},
		{
			name:   "leaves inside list",
			fields: []string{"comments.id", "comments.text"},
			want: map[string]any{"comments": []any{
				map[string]any{"id": c0.ID, "text": c0.Text},
				map[string]any{"id": c1.ID, "text": c1.Text},
			}},
		},
		{
			name:   "descendants inside list",
			fields: []string{"comments.id", "comments.text", "comments.author.id", "comments.author.name"},
			want: map[string]any{"comments": []any{
				map[string]any{"id": c0.ID, "text": c0.Text, "author": map[string]any{"id": c0.Author.ID, "name": c0.Author.Name}},
				map[string]any{"id": c1.ID, "text": c1.Text, "author": map[string]any{"id": c1.Author.ID, "name": c1.Author.Name}},
			}},
		},
		{
			name:   "nested list returned whole",
			fields: []string{"comments.replies"},
			want: map[string]any{"comments": []any{
				map[string]any{"replies": c0.Replies},
				map[string]any{"replies": c1.Replies},
			}},
		},
		{
			name:   "leaves in nested lists",
			fields: []string{"comments.replies.id", "comments.replies.text"},
			want: map[string]any{"comments": []any{
				map[string]any{"replies": []any{
					map[string]any{"id": c0.Replies[0].ID, "text": c0.Replies[0].Text},
					map[string]any{"id": c0.Replies[1].ID, "text": c0.Replies[1].Text},
				}},
				map[string]any{"replies": []any{
					map[string]any{"id": c1.Replies[0].ID, "text": c1.Replies[0].Text},
				}},
			}},
		},
		{
			name:   "json tag alias",
			fields: []string{"author.nick_name"},
			want:   map[string]any{"author": map[string]any{"nick_name": post.Author.NickName}},
		},
		{
			name:   "restql tag wins over json tag",
			fields: []string{"author.pet.nick_name"},
			want:   map[string]any{"author": map[string]any{"pet": map[string]any{"nick_name": post.Author.Pet.NickName}}},
		},
		{
			name:   "literal name reported under alias",
			fields: []string{"author.NickName"},
			want:   map[string]any{"author": map[string]any{"nick_name": post.Author.NickName}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Select(post, tc.fields...)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Select mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelect_ConcreteScenario(t *testing.T) {
	post := &Post{ID: 7, Text: "hi", Author: &Author{ID: 3, Email: "a@b.c"}}

	got, err := Select(post, "id", "author.id", "author.email")
	require.NoError(t, err)

	want := map[string]any{"id": int64(7), "author": map[string]any{"id": int64(3), "email": "a@b.c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_NullAndEmptyPassThrough(t *testing.T) {
	post := newPost()
	post.Text = ""
	post.Author = nil
	post.Comments = nil

	got, err := Select(post, "id", "text", "author", "comments")
	require.NoError(t, err)

	want := map[string]any{
		"id":       post.ID,
		"text":     "",
		"author":   (*Author)(nil),
		"comments": []*Comment(nil),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_TraverseThroughNull(t *testing.T) {
	post := newPost()
	post.Author = nil
	post.Comments[1].Author = nil

	got, err := Select(post, "author.id", "comments.author.id")
	require.NoError(t, err)

	want := map[string]any{
		"author": nil,
		"comments": []any{
			map[string]any{"author": map[string]any{"id": post.Comments[0].Author.ID}},
			map[string]any{"author": nil},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_DuplicatedListElements(t *testing.T) {
	post := newPost()
	post.Comments = append(post.Comments, post.Comments[0])

	got, err := Select(post, "comments.id")
	require.NoError(t, err)

	want := map[string]any{"comments": []any{
		map[string]any{"id": int64(1)},
		map[string]any{"id": int64(2)},
		map[string]any{"id": int64(1)},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}

	whole, err := Select(post, "comments")
	require.NoError(t, err)
	require.Len(t, whole["comments"], 3)
}

func TestSelect_Errors(t *testing.T) {
	post := newPost()

	t.Run("nil entity", func(t *testing.T) {
		_, err := Select(nil, "id")
		require.ErrorIs(t, err, ErrEntityNotInformed)
		require.EqualError(t, err, "Entity not informed.")
	})

	t.Run("typed nil entity", func(t *testing.T) {
		_, err := Select((*Post)(nil), "id")
		require.ErrorIs(t, err, ErrEntityNotInformed)
	})

	t.Run("nil entity reported before missing fields", func(t *testing.T) {
		_, err := Select(nil)
		require.ErrorIs(t, err, ErrEntityNotInformed)
	})

	for _, fields := range [][]string{nil, {""}, {"  "}, {" , ,"}} {
		_, err := Select(post, fields...)
		require.ErrorIs(t, err, ErrNoFieldsInformed)
		require.EqualError(t, err, "You must inform at least one field.")
	}

	t.Run("first unresolved field in input order", func(t *testing.T) {
		_, err := Select(post, "nonExistingField1", "nonExistingField2", "nonExistingField2")
		require.ErrorIs(t, err, ErrFieldNotFound)
		require.EqualError(t, err, "Field 'nonExistingField1' not found.")
	})

	t.Run("unresolved subfield", func(t *testing.T) {
		_, err := Select(post, "id", "author.nonExistingField1", "author.nonExistingField2")
		var fnf *FieldNotFoundError
		require.ErrorAs(t, err, &fnf)
		require.Equal(t, "nonExistingField1", fnf.Field)
	})

	t.Run("walking into a scalar", func(t *testing.T) {
		_, err := Select(post, "id.value")
		require.EqualError(t, err, "Field 'value' not found.")
	})

	t.Run("walking into a time", func(t *testing.T) {
		for _, field := range []string{"wall", "loc"} {
			_, err := Select(post, "datePublished."+field)
			var fnf *FieldNotFoundError
			require.ErrorAs(t, err, &fnf)
			require.Equal(t, &FieldNotFoundError{Field: field}, fnf)
		}

		got, err := Select(post, "datePublished")
		require.NoError(t, err)
		require.Equal(t, map[string]any{"datePublished": post.DatePublished}, got)
	})

	t.Run("empty segment", func(t *testing.T) {
		_, err := Select(post, "author..id")
		var ipe *InvalidPathError
		require.ErrorAs(t, err, &ipe)
		require.Equal(t, "author..id", ipe.Path)
	})

	t.Run("root list", func(t *testing.T) {
		_, err := Select(post.Comments, "id")
		require.ErrorIs(t, err, ErrEntityNotObject)
	})
}

func TestSelect_QueryForms(t *testing.T) {
	post := newPost()
	want, err := Select(post, "id", "author.id", "comments.text")
	require.NoError(t, err)

	list := []string{"id", "author.id", "comments.text"}
	forms := map[string]func() (map[string]any, error){
		"slice":         func() (map[string]any, error) { return Select(post, list...) },
		"comma joined":  func() (map[string]any, error) { return Select(post, "id,author.id,comments.text") },
		"from select":   func() (map[string]any, error) { return From(post).Select(list...) },
		"fields from":   func() (map[string]any, error) { return Fields(list...).From(post) },
		"custom select": func() (map[string]any, error) { return New().From(post).Select("id, author.id", "comments.text") },
	}
	for name, form := range forms {
		t.Run(name, func(t *testing.T) {
			got, err := form()
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("Select mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelect_Properties(t *testing.T) {
	post := newPost()
	paths := []string{"id", "author.pet.age", "comments.author.id", "comments.replies.text", "author.email"}

	t.Run("top level keys are first segments", func(t *testing.T) {
		got, err := Select(post, paths...)
		require.NoError(t, err)
		keys := map[string]bool{}
		for k := range got {
			keys[k] = true
		}
		require.Equal(t, map[string]bool{"id": true, "author": true, "comments": true}, keys)
	})

	t.Run("idempotent", func(t *testing.T) {
		a, err := Select(post, paths...)
		require.NoError(t, err)
		b, err := Select(post, paths...)
		require.NoError(t, err)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("results differ (-first +second):\n%s", diff)
		}
	})

	t.Run("merge of disjoint paths", func(t *testing.T) {
		for i := range paths {
			for j := range paths {
				if i == j {
					continue
				}
				together, err := Select(post, paths[i], paths[j])
				require.NoError(t, err)
				a, err := Select(post, paths[i])
				require.NoError(t, err)
				b, err := Select(post, paths[j])
				require.NoError(t, err)
				merged, err := merge(a, b)
				require.NoError(t, err)
				if diff := cmp.Diff(together, merged); diff != "" {
					t.Fatalf("%s + %s (-together +merged):\n%s", paths[i], paths[j], diff)
				}
			}
		}
	})
}

func TestSelect_DoesNotMutateSource(t *testing.T) {
	newDoc := func() map[string]any {
		return map[string]any{
			"id": 1,
			"author": map[string]any{
				"id":  2,
				"pet": map[string]any{"name": "rex", "age": 4},
			},
			"tags": []any{map[string]any{"k": "a", "v": 1}},
		}
	}
	doc := newDoc()

	_, err := Select(doc, "author.pet.age", "author", "author.id", "tags.k", "tags.v")
	require.NoError(t, err)
	if diff := cmp.Diff(newDoc(), doc); diff != "" {
		t.Fatalf("source changed (-want +got):\n%s", diff)
	}
}

func TestSelect_WholeWinsOverPartial(t *testing.T) {
	post := newPost()
	doc := map[string]any{
		"comments": []any{
			map[string]any{"id": 1, "text": "x"},
			map[string]any{"id": 2, "text": "y"},
		},
	}
	cases := []struct {
		name   string
		entity any
		want   any
	}{
		{name: "struct source", entity: post, want: post.Comments},
		{name: "map source", entity: doc, want: doc["comments"]},
	}
	for _, tc := range cases {
		for _, fields := range [][]string{
			{"comments", "comments.id"},
			{"comments.id", "comments"},
			{"comments.author.id", "comments", "comments.text"},
		} {
			t.Run(tc.name+" "+strings.Join(fields, ","), func(t *testing.T) {
				got, err := Select(tc.entity, fields...)
				require.NoError(t, err)
				if diff := cmp.Diff(map[string]any{"comments": tc.want}, got); diff != "" {
					t.Fatalf("Select mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}

	t.Run("nested whole inside a list", func(t *testing.T) {
		got, err := Select(post, "comments.author.id", "comments.author")
		require.NoError(t, err)
		want := map[string]any{"comments": []any{
			map[string]any{"author": post.Comments[0].Author},
			map[string]any{"author": post.Comments[1].Author},
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Select mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestSelect_FoldedNames(t *testing.T) {
	type inner struct{ Value int }
	type outer struct {
		Inner inner
		Other string
	}
	entity := outer{Inner: inner{Value: 5}, Other: "x"}

	_, err := Select(entity, "inner.value")
	require.True(t, errors.Is(err, ErrFieldNotFound))

	got, err := New(WithFoldedNames()).Select(entity, "inner.value", "Other")
	require.NoError(t, err)
	want := map[string]any{"Inner": map[string]any{"Value": 5}, "Other": "x"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Select mismatch (-want +got):\n%s", diff)
	}
}
