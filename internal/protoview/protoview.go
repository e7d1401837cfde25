// Package protoview derives, from a message descriptor and a set of field
// paths, a "view" message holding only the selected fields. The view
// describes the shape of a projection of that message: field names,
// numbers and cardinality are kept, partially selected sub-messages become
// nested view messages, and fully selected ones refer to the original
// types.
package protoview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/jhump/protoreflect/v2/protoprint"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/hanpama/restql/internal/language"
	"github.com/hanpama/restql/internal/selector"
)

// node is one level of the selection tree. A node with whole set selects
// the field entirely, regardless of its children.
type node struct {
	fd       protoreflect.FieldDescriptor
	whole    bool
	children []*node
}

func (n *node) child(fd protoreflect.FieldDescriptor) *node {
	for _, c := range n.children {
		if c.fd == fd {
			return c
		}
	}
	c := &node{fd: fd}
	n.children = append(n.children, c)
	return c
}

// lookup resolves segment against md the way projections do: JSON name
// first, then proto name.
func lookup(md protoreflect.MessageDescriptor, segment string) protoreflect.FieldDescriptor {
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		if fd := fields.Get(i); fd.JSONName() == segment {
			return fd
		}
	}
	return fields.ByName(protoreflect.Name(segment))
}

func tree(md protoreflect.MessageDescriptor, paths []selector.Path) (*node, error) {
	root := &node{}
	for _, p := range paths {
		cur, msg := root, md
		for i, seg := range p {
			if msg == nil {
				return nil, &selector.FieldNotFoundError{Field: seg}
			}
			fd := lookup(msg, seg)
			if fd == nil {
				return nil, &selector.FieldNotFoundError{Field: seg}
			}
			cur = cur.child(fd)
			if i == len(p)-1 {
				cur.whole = true
				break
			}
			if fd.IsMap() {
				return nil, fmt.Errorf("protoview: cannot select inside map field %s", fd.FullName())
			}
			msg = fd.Message()
		}
	}
	return root, nil
}

// ViewName is the name of the view message built for md.
func ViewName(md protoreflect.MessageDescriptor) protoreflect.Name {
	return md.Name() + "View"
}

// Build returns a file holding the view of md for paths. The file shares
// md's package and imports md's file for fully selected message and enum
// fields.
func Build(md protoreflect.MessageDescriptor, paths []selector.Path) (protoreflect.FileDescriptor, error) {
	if len(paths) == 0 {
		return nil, selector.ErrNoFieldsInformed
	}
	root, err := tree(md, paths)
	if err != nil {
		return nil, err
	}

	parent := md.ParentFile()
	name := strings.TrimSuffix(parent.Path(), ".proto") + "_" + strings.ToLower(string(md.Name())) + "_view.proto"
	fb := protobuilder.NewFile(name)
	fb.SetPackageName(parent.Package())
	fb.SetSyntax(parent.Syntax())

	mb := protobuilder.NewMessage(ViewName(md))
	mb.SetComments(protobuilder.Comments{LeadingComment: selectionComment(md, paths)})
	if err := addFields(mb, root); err != nil {
		return nil, err
	}
	fb.AddMessage(mb)
	return fb.Build()
}

func addFields(mb *protobuilder.MessageBuilder, n *node) error {
	for _, c := range n.children {
		fd := c.fd
		var fb *protobuilder.FieldBuilder
		switch {
		case c.whole && fd.IsMap():
			fb = protobuilder.NewMapField(fd.Name(), fieldType(fd.MapKey()), fieldType(fd.MapValue()))
		case c.whole:
			fb = protobuilder.NewField(fd.Name(), fieldType(fd))
		default:
			nested := protobuilder.NewMessage(nestedName(fd))
			if err := addFields(nested, c); err != nil {
				return err
			}
			mb.AddNestedMessage(nested)
			fb = protobuilder.NewField(fd.Name(), protobuilder.FieldTypeMessage(nested))
		}
		fb.SetNumber(fd.Number())
		if fd.IsList() {
			fb.SetRepeated()
		}
		mb.AddField(fb)
	}
	return nil
}

func fieldType(fd protoreflect.FieldDescriptor) *protobuilder.FieldType {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return protobuilder.FieldTypeImportedMessage(fd.Message())
	case protoreflect.EnumKind:
		return protobuilder.FieldTypeImportedEnum(fd.Enum())
	default:
		return protobuilder.FieldTypeScalar(fd.Kind())
	}
}

// nestedName turns a field name like unit_prices into UnitPricesView.
func nestedName(fd protoreflect.FieldDescriptor) protoreflect.Name {
	var b strings.Builder
	for _, part := range strings.Split(string(fd.Name()), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("View")
	return protoreflect.Name(b.String())
}

// selectionComment lists the normalized selection under the view's name.
func selectionComment(md protoreflect.MessageDescriptor, paths []selector.Path) string {
	var b strings.Builder
	fmt.Fprintf(&b, " Selected fields of %s:\n", md.FullName())
	for _, line := range strings.Split(language.FormatSelection(paths), "\n") {
		b.WriteString(" " + strings.ReplaceAll(line, "\t", "  ") + "\n")
	}
	return b.String()
}

// Describe renders the view of md for paths as .proto source.
func Describe(md protoreflect.MessageDescriptor, paths []selector.Path) (string, error) {
	fd, err := Build(md, paths)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := (&protoprint.Printer{}).PrintProtoFile(fd, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
