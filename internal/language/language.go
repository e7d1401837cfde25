// Package language reads field selections written as GraphQL selection
// sets, e.g. `{ id author { id email } }`, and turns them into selector
// paths. Only plain fields are accepted: aliases, arguments, directives,
// variables and fragments have no meaning for a projection.
package language

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/hanpama/restql/internal/selector"
)

// SyntaxError reports a selection that is not plain nested fields.
type SyntaxError struct {
	Pos     *Position
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("selection %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	}
	return "selection: " + e.Message
}

// ParseQuery parses a GraphQL query document.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseSelection parses a selection set into one path per leaf field, in
// document order. The outer braces may be omitted.
func ParseSelection(source string) ([]selector.Path, error) {
	src := strings.TrimSpace(source)
	if src == "" {
		return nil, selector.ErrNoFieldsInformed
	}
	if !strings.HasPrefix(src, "{") && !hasKeyword(src) {
		src = "{" + src + "}"
	}
	doc, err := ParseQuery(src)
	if err != nil {
		var gerr *gqlerror.Error
		if errors.As(err, &gerr) {
			se := &SyntaxError{Message: gerr.Message}
			if len(gerr.Locations) > 0 {
				se.Pos = &Position{Line: gerr.Locations[0].Line, Column: gerr.Locations[0].Column}
			}
			return nil, se
		}
		return nil, err
	}
	if len(doc.Fragments) > 0 {
		return nil, &SyntaxError{Pos: doc.Fragments[0].Position, Message: "fragments are not supported"}
	}
	if len(doc.Operations) != 1 {
		return nil, &SyntaxError{Message: fmt.Sprintf("expected one selection set, got %d", len(doc.Operations))}
	}
	op := doc.Operations[0]
	if op.Operation != ast.Query {
		return nil, &SyntaxError{Pos: op.Position, Message: "only query selections are supported"}
	}
	if len(op.VariableDefinitions) > 0 || len(op.Directives) > 0 {
		return nil, &SyntaxError{Pos: op.Position, Message: "variables and directives are not supported"}
	}
	var paths []selector.Path
	if err := collect(op.SelectionSet, nil, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// hasKeyword reports whether src starts with an operation keyword rather
// than a field name such as "queryCount".
func hasKeyword(src string) bool {
	for _, kw := range []string{"query", "mutation", "subscription"} {
		rest, ok := strings.CutPrefix(src, kw)
		if ok && (rest == "" || strings.ContainsRune(" \t\n\r{(", rune(rest[0]))) {
			return true
		}
	}
	return false
}

func collect(set SelectionSet, prefix selector.Path, out *[]selector.Path) error {
	for _, sel := range set {
		switch s := sel.(type) {
		case *Field:
			if s.Alias != "" && s.Alias != s.Name {
				return &SyntaxError{Pos: s.Position, Message: fmt.Sprintf("alias %q is not supported", s.Alias)}
			}
			if len(s.Arguments) > 0 || len(s.Directives) > 0 {
				return &SyntaxError{Pos: s.Position, Message: fmt.Sprintf("field %q: arguments and directives are not supported", s.Name)}
			}
			path := append(append(selector.Path(nil), prefix...), s.Name)
			if len(s.SelectionSet) == 0 {
				*out = append(*out, path)
				continue
			}
			if err := collect(s.SelectionSet, path, out); err != nil {
				return err
			}
		case *FragmentSpread:
			return &SyntaxError{Pos: s.Position, Message: "fragments are not supported"}
		case *InlineFragment:
			return &SyntaxError{Pos: s.Position, Message: "fragments are not supported"}
		}
	}
	return nil
}

// Paths combines dotted field paths and a selection set into one path
// list, fields first. Blank input on both sides is ErrNoFieldsInformed.
func Paths(fields []string, selection string) ([]selector.Path, error) {
	var paths []selector.Path
	if strings.Join(fields, "") != "" {
		p, err := selector.ParsePaths(fields...)
		if err != nil && !errors.Is(err, selector.ErrNoFieldsInformed) {
			return nil, err
		}
		paths = append(paths, p...)
	}
	if strings.TrimSpace(selection) != "" {
		p, err := ParseSelection(selection)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p...)
	}
	if len(paths) == 0 {
		return nil, selector.ErrNoFieldsInformed
	}
	return paths, nil
}

// FormatSelection renders paths as a selection set. Paths sharing a
// prefix are grouped under one field in first-seen order; a path that
// selects a whole attribute stays a separate leaf next to its subfields.
func FormatSelection(paths []selector.Path) string {
	var root SelectionSet
	for _, p := range paths {
		root = insert(root, p)
	}
	doc := &QueryDocument{Operations: ast.OperationList{{Operation: ast.Query, SelectionSet: root}}}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)
	return strings.TrimSpace(buf.String())
}

func insert(set SelectionSet, p selector.Path) SelectionSet {
	if len(p) == 0 {
		return set
	}
	if len(p) == 1 {
		return append(set, &Field{Name: p[0], Alias: p[0]})
	}
	for _, sel := range set {
		if f, ok := sel.(*Field); ok && f.Name == p[0] && len(f.SelectionSet) > 0 {
			f.SelectionSet = insert(f.SelectionSet, p[1:])
			return set
		}
	}
	return append(set, &Field{Name: p[0], Alias: p[0], SelectionSet: insert(nil, p[1:])})
}
