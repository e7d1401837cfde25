package selector

import (
	"encoding"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
	"unsafe"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Kind classifies a runtime value for traversal.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Field describes one attribute of an object node. Tag carries the
// metadata alias providers read; it may be empty.
type Field struct {
	Name string
	Tag  reflect.StructTag
}

// Node is the attribute-access capability of an object. Types that want
// to control how they are projected implement it directly; structs, string
// keyed maps and protobuf messages are adapted automatically.
//
// Get is only called with the Name of a field returned by Fields.
type Node interface {
	Fields() []Field
	Get(name string) any
}

// value is a runtime value tagged with its Kind.
type value struct {
	kind  Kind
	node  Node
	items []any
}

// KindOf reports how the projector treats v.
func KindOf(v any) Kind { return classify(v).kind }

func classify(v any) value {
	switch x := v.(type) {
	case nil:
		return value{kind: KindNull}
	case Node:
		if isNullish(x) {
			return value{kind: KindNull}
		}
		return value{kind: KindObject, node: x}
	case protoreflect.ProtoMessage:
		m := x.ProtoReflect()
		if !m.IsValid() {
			return value{kind: KindNull}
		}
		return value{kind: KindObject, node: protoNode{m: m}}
	case []byte:
		if x == nil {
			return value{kind: KindNull}
		}
		return value{kind: KindScalar}
	case []any:
		if x == nil {
			return value{kind: KindNull}
		}
		return value{kind: KindList, items: x}
	case map[string]any:
		if x == nil {
			return value{kind: KindNull}
		}
		return value{kind: KindObject, node: newMapNode(reflect.ValueOf(x))}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return value{kind: KindNull}
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if marshalsItself(rv.Type()) {
			return value{kind: KindScalar}
		}
		return value{kind: KindObject, node: newStructNode(rv)}
	case reflect.Map:
		if rv.IsNil() {
			return value{kind: KindNull}
		}
		if rv.Type().Key().Kind() == reflect.String {
			return value{kind: KindObject, node: newMapNode(rv)}
		}
	case reflect.Slice:
		if rv.IsNil() {
			return value{kind: KindNull}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value{kind: KindScalar}
		}
		return value{kind: KindList, items: sliceItems(rv)}
	case reflect.Array:
		return value{kind: KindList, items: sliceItems(rv)}
	}
	return value{kind: KindScalar}
}

var (
	jsonMarshaler = reflect.TypeFor[json.Marshaler]()
	textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()
)

// marshalsItself reports whether t encodes itself, as time.Time does. Such
// structs are scalars.
func marshalsItself(t reflect.Type) bool {
	for _, m := range []reflect.Type{jsonMarshaler, textMarshaler} {
		if t.Implements(m) || reflect.PointerTo(t).Implements(m) {
			return true
		}
	}
	return false
}

func sliceItems(rv reflect.Value) []any {
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = readable(rv.Index(i)).Interface()
	}
	return items
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// readable returns a view of v whose Interface does not panic, reaching
// into unexported struct fields when v is addressable.
func readable(v reflect.Value) reflect.Value {
	if v.CanInterface() || !v.CanAddr() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// ------------------ structs ------------------

type structNode struct {
	v reflect.Value
}

type structField struct {
	Field
	index []int
}

type structLayout struct {
	fields []Field
	byName map[string]structField
}

var structLayouts sync.Map // reflect.Type -> *structLayout

func newStructNode(rv reflect.Value) structNode {
	if !rv.CanAddr() {
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(rv)
		rv = cp
	}
	return structNode{v: rv}
}

func layoutOf(t reflect.Type) *structLayout {
	if l, ok := structLayouts.Load(t); ok {
		return l.(*structLayout)
	}
	l := &structLayout{byName: make(map[string]structField)}
	for _, sf := range reflect.VisibleFields(t) {
		if sf.Name == "_" {
			continue
		}
		f := structField{Field: Field{Name: sf.Name, Tag: sf.Tag}, index: sf.Index}
		l.fields = append(l.fields, f.Field)
		l.byName[sf.Name] = f
	}
	actual, _ := structLayouts.LoadOrStore(t, l)
	return actual.(*structLayout)
}

func (n structNode) Fields() []Field { return layoutOf(n.v.Type()).fields }

func (n structNode) Get(name string) any {
	f, ok := layoutOf(n.v.Type()).byName[name]
	if !ok {
		return nil
	}
	fv, err := n.v.FieldByIndexErr(f.index)
	if err != nil {
		// promoted through a nil embedded pointer
		return nil
	}
	return readable(fv).Interface()
}

// ------------------ maps ------------------

type mapNode struct {
	v reflect.Value
}

func newMapNode(rv reflect.Value) mapNode { return mapNode{v: rv} }

func (n mapNode) Fields() []Field {
	keys := n.v.MapKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name}
	}
	return fields
}

func (n mapNode) Get(name string) any {
	key := reflect.ValueOf(name).Convert(n.v.Type().Key())
	v := n.v.MapIndex(key)
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
