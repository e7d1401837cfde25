package selector

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// protoNode adapts a protobuf message. Fields are named by their proto
// name and tagged with `json:"<json_name>" protobuf:"<name>"`, so the
// json alias provider resolves protobuf JSON names.
type protoNode struct {
	m protoreflect.Message
}

func (n protoNode) Fields() []Field {
	fds := n.m.Descriptor().Fields()
	fields := make([]Field, fds.Len())
	for i := range fields {
		fd := fds.Get(i)
		fields[i] = Field{
			Name: string(fd.Name()),
			Tag:  reflect.StructTag(fmt.Sprintf("json:%q protobuf:%q", fd.JSONName(), fd.Name())),
		}
	}
	return fields
}

func (n protoNode) Get(name string) any {
	fd := n.m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		return nil
	}
	return protoFieldValue(n.m, fd)
}

// protoFieldValue converts a field of m into plain Go values: repeated
// fields become []any, maps become map[string]any, messages stay
// proto.Message and enums become their value name. Unset fields that track
// presence are nil.
func protoFieldValue(m protoreflect.Message, fd protoreflect.FieldDescriptor) any {
	switch {
	case fd.IsList():
		l := m.Get(fd).List()
		out := make([]any, l.Len())
		for i := range out {
			out[i] = protoSingular(fd, l.Get(i))
		}
		return out
	case fd.IsMap():
		mv := m.Get(fd).Map()
		out := make(map[string]any, mv.Len())
		mv.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
			out[k.String()] = protoSingular(fd.MapValue(), v)
			return true
		})
		return out
	case fd.Message() != nil:
		if !m.Has(fd) {
			return nil
		}
		return m.Get(fd).Message().Interface()
	case fd.HasPresence() && !m.Has(fd):
		return nil
	default:
		return protoSingular(fd, m.Get(fd))
	}
}

func protoSingular(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return v.Message().Interface()
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int32(v.Enum())
	default:
		return v.Interface()
	}
}
