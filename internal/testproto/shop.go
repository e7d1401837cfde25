// Package testproto provides a small catalog service described at runtime
// for tests that need real protobuf descriptors and messages.
//
//	package shop;
//	enum Status { STATUS_UNSPECIFIED = 0; ACTIVE = 1; RETIRED = 2; }
//	message Dimensions { int32 width = 1; int32 height = 2; }
//	message Tag { string label = 1; }
//	message Item {
//	  string sku = 1; string display_name = 2; int64 unit_price = 3;
//	  repeated Tag tags = 4; Dimensions dims = 5; Status status = 6;
//	  map<string, string> attributes = 7;
//	}
//	message GetItemRequest { string sku = 1; }
//	message GetItemResponse { Item item = 1; }
//	service Catalog { rpc GetItem(GetItemRequest) returns (GetItemResponse); }
package testproto

import (
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

var (
	once sync.Once
	file protoreflect.FileDescriptor
)

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(jsonName(name)),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func repeated(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func jsonName(name string) string {
	out := make([]byte, 0, len(name))
	upper := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}

// FileProto returns the descriptor proto of shop.proto.
func FileProto() *descriptorpb.FileDescriptorProto {
	const (
		tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
		tInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
		tInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
		tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
		tEnum    = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	)
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("shop.proto"),
		Package: proto.String("shop"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Status"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("STATUS_UNSPECIFIED"), Number: proto.Int32(0)},
				{Name: proto.String("ACTIVE"), Number: proto.Int32(1)},
				{Name: proto.String("RETIRED"), Number: proto.Int32(2)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Dimensions"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("width", 1, tInt32, ""),
					field("height", 2, tInt32, ""),
				},
			},
			{
				Name:  proto.String("Tag"),
				Field: []*descriptorpb.FieldDescriptorProto{field("label", 1, tString, "")},
			},
			{
				Name: proto.String("Item"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("sku", 1, tString, ""),
					field("display_name", 2, tString, ""),
					field("unit_price", 3, tInt64, ""),
					repeated(field("tags", 4, tMessage, ".shop.Tag")),
					field("dims", 5, tMessage, ".shop.Dimensions"),
					field("status", 6, tEnum, ".shop.Status"),
					repeated(field("attributes", 7, tMessage, ".shop.Item.AttributesEntry")),
				},
				NestedType: []*descriptorpb.DescriptorProto{{
					Name: proto.String("AttributesEntry"),
					Field: []*descriptorpb.FieldDescriptorProto{
						field("key", 1, tString, ""),
						field("value", 2, tString, ""),
					},
					Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
				}},
			},
			{
				Name:  proto.String("GetItemRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{field("sku", 1, tString, "")},
			},
			{
				Name:  proto.String("GetItemResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{field("item", 1, tMessage, ".shop.Item")},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Catalog"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("GetItem"),
				InputType:  proto.String(".shop.GetItemRequest"),
				OutputType: proto.String(".shop.GetItemResponse"),
			}},
		}},
	}
}

// File returns the built shop.proto descriptor.
func File() protoreflect.FileDescriptor {
	once.Do(func() {
		fd, err := protodesc.NewFile(FileProto(), nil)
		if err != nil {
			panic(err)
		}
		file = fd
	})
	return file
}

// DescriptorSet returns shop.proto as a serialized FileDescriptorSet.
func DescriptorSet() []byte {
	b, err := proto.Marshal(&descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{FileProto()}})
	if err != nil {
		panic(err)
	}
	return b
}

// Message returns the descriptor of shop.<name>.
func Message(name string) protoreflect.MessageDescriptor {
	return File().Messages().ByName(protoreflect.Name(name))
}

// GetItem returns the Catalog.GetItem method descriptor.
func GetItem() protoreflect.MethodDescriptor {
	return File().Services().ByName("Catalog").Methods().ByName("GetItem")
}

// NewItem builds a shop.Item.
func NewItem(sku, name string, price int64, tags ...string) *dynamicpb.Message {
	md := Message("Item")
	m := dynamicpb.NewMessage(md)
	fields := md.Fields()
	m.Set(fields.ByName("sku"), protoreflect.ValueOfString(sku))
	m.Set(fields.ByName("display_name"), protoreflect.ValueOfString(name))
	m.Set(fields.ByName("unit_price"), protoreflect.ValueOfInt64(price))
	m.Set(fields.ByName("status"), protoreflect.ValueOfEnum(1))

	list := m.Mutable(fields.ByName("tags")).List()
	for _, t := range tags {
		tag := dynamicpb.NewMessage(Message("Tag"))
		tag.Set(tag.Descriptor().Fields().ByName("label"), protoreflect.ValueOfString(t))
		list.Append(protoreflect.ValueOfMessage(tag))
	}

	dims := dynamicpb.NewMessage(Message("Dimensions"))
	dims.Set(dims.Descriptor().Fields().ByName("width"), protoreflect.ValueOfInt32(10))
	dims.Set(dims.Descriptor().Fields().ByName("height"), protoreflect.ValueOfInt32(20))
	m.Set(fields.ByName("dims"), protoreflect.ValueOfMessage(dims))

	attrs := m.Mutable(fields.ByName("attributes")).Map()
	attrs.Set(protoreflect.ValueOfString("color").MapKey(), protoreflect.ValueOfString("red"))
	return m
}

// NewGetItemResponse wraps item in a shop.GetItemResponse. A nil item
// leaves the field unset.
func NewGetItemResponse(item *dynamicpb.Message) *dynamicpb.Message {
	md := Message("GetItemResponse")
	m := dynamicpb.NewMessage(md)
	if item != nil {
		m.Set(md.Fields().ByName("item"), protoreflect.ValueOfMessage(item))
	}
	return m
}
