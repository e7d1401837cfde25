// Package selector implements selective projection of object graphs: given
// an entity and a set of dotted field paths (e.g. "author.pet.age") it
// returns a nested map holding only the requested fields, keeping the
// graph's nesting and the shape of its collections.
//
// # Pipeline
//
//  1. Paths. ParsePaths splits every argument on commas, trims each piece,
//     drops blank pieces and splits the rest on dots. Zero usable paths is
//     ErrNoFieldsInformed; an empty segment is an *InvalidPathError.
//  2. Projection. Each path is walked through the entity on its own. Lists
//     distribute the remaining path over every element, keeping order,
//     length and duplicates. Objects resolve the next segment (see Name
//     Resolution) and nest the result under the attribute's external name.
//     The last segment reports the attribute's raw value: selecting
//     "author" returns the whole author, unfiltered. A null met before the
//     last segment ends the walk with a nil value at that key.
//  3. Merge. Per-path results are folded, in input order, into one
//     accumulator: new keys are set, maps merge recursively, parallel lists
//     merge element by element, and anything else is overwritten by the
//     later path. A value selected whole wins over a partial selection of
//     the same field in either order: "comments,comments.id" reports the
//     comments unfiltered.
//
// # Values
//
// Every runtime value is classified into a Kind:
//   - KindObject: values implementing Node, structs and pointers to
//     structs, maps with string keys, and protobuf messages.
//   - KindList: slices (other than []byte) and arrays.
//   - KindNull: nil and typed nils.
//   - KindScalar: everything else, []byte included. Structs implementing
//     json.Marshaler or encoding.TextMarshaler, time.Time among them, are
//     scalars too.
//
// Struct fields are read regardless of export status, promoted fields of
// embedded structs included. The source graph is never written to; result
// maps are freshly allocated and leaf values are shared by reference.
//
// # Name Resolution
//
// A segment first matches a field whose alias equals it, then a field whose
// literal name equals it. Aliases come from an ordered list of
// AliasProviders; by default the `restql` struct tag, then the `json` tag.
// Protobuf fields carry their JSON name as json alias. A field with an
// alias is always reported under the alias.
//
// # Errors
//
// The first unresolvable segment in input order is reported as a
// *FieldNotFoundError; no partial result is returned. Graphs are assumed
// acyclic along the selected paths.
package selector
