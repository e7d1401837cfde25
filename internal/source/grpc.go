package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Transport performs unary gRPC calls with dynamic messages.
// Implementations must be safe for concurrent use.
type Transport interface {
	Call(ctx context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error)
}

// GRPC serves entities returned by a unary method. The key is written
// into a field of the request message; the response, or one of its
// message fields, is the entity.
type GRPC struct {
	transport   Transport
	method      protoreflect.MethodDescriptor
	keyField    protoreflect.FieldDescriptor
	resultField protoreflect.FieldDescriptor
}

type grpcConfig struct {
	keyField    string
	resultField string
}

type GRPCOption func(*grpcConfig)

// WithRequestKeyField names the request field receiving the key. The
// default is the request's first field.
func WithRequestKeyField(name string) GRPCOption {
	return func(c *grpcConfig) { c.keyField = name }
}

// WithResultField names the response field holding the entity.
func WithResultField(name string) GRPCOption {
	return func(c *grpcConfig) { c.resultField = name }
}

// NewGRPC serves entities by calling method through t.
func NewGRPC(t Transport, method protoreflect.MethodDescriptor, opts ...GRPCOption) (*GRPC, error) {
	if method.IsStreamingClient() || method.IsStreamingServer() {
		return nil, fmt.Errorf("source: %s is not a unary method", method.FullName())
	}
	var c grpcConfig
	for _, o := range opts {
		o(&c)
	}
	g := &GRPC{transport: t, method: method}

	in := method.Input()
	if c.keyField == "" {
		if in.Fields().Len() == 0 {
			return nil, fmt.Errorf("source: %s has no fields", in.FullName())
		}
		g.keyField = in.Fields().Get(0)
	} else if g.keyField = in.Fields().ByName(protoreflect.Name(c.keyField)); g.keyField == nil {
		return nil, fmt.Errorf("source: %s has no field %q", in.FullName(), c.keyField)
	}
	if g.keyField.Cardinality() == protoreflect.Repeated || g.keyField.Message() != nil {
		return nil, fmt.Errorf("source: key field %s must be a singular scalar", g.keyField.FullName())
	}

	if c.resultField != "" {
		out := method.Output()
		g.resultField = out.Fields().ByName(protoreflect.Name(c.resultField))
		if g.resultField == nil {
			return nil, fmt.Errorf("source: %s has no field %q", out.FullName(), c.resultField)
		}
		if g.resultField.Message() == nil || g.resultField.IsList() || g.resultField.IsMap() {
			return nil, fmt.Errorf("source: result field %s must be a singular message", g.resultField.FullName())
		}
	}
	return g, nil
}

// Method returns the method the source calls.
func (g *GRPC) Method() protoreflect.MethodDescriptor { return g.method }

// ResultDescriptor returns the descriptor of the entities the source
// returns.
func (g *GRPC) ResultDescriptor() protoreflect.MessageDescriptor {
	if g.resultField != nil {
		return g.resultField.Message()
	}
	return g.method.Output()
}

func (g *GRPC) Fetch(ctx context.Context, key string) (any, error) {
	v, err := parseKey(g.keyField, key)
	if err != nil {
		return nil, err
	}
	req := dynamicpb.NewMessage(g.method.Input())
	req.Set(g.keyField, v)

	resp, err := g.transport.Call(ctx, g.method, req)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotFound, key, err)
	}
	if err != nil {
		return nil, err
	}
	if g.resultField == nil {
		return resp.Interface(), nil
	}
	if !resp.Has(g.resultField) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return resp.Get(g.resultField).Message().Interface(), nil
}

// parseKey converts key to a value of fd's kind.
func parseKey(fd protoreflect.FieldDescriptor, key string) (protoreflect.Value, error) {
	bad := func(err error) (protoreflect.Value, error) {
		return protoreflect.Value{}, fmt.Errorf("%w: key %q for %s: %v", ErrNotFound, key, fd.Name(), err)
	}
	switch fd.Kind() {
	case protoreflect.StringKind:
		return protoreflect.ValueOfString(key), nil
	case protoreflect.BytesKind:
		return protoreflect.ValueOfBytes([]byte(key)), nil
	case protoreflect.BoolKind:
		b, err := strconv.ParseBool(key)
		if err != nil {
			return bad(err)
		}
		return protoreflect.ValueOfBool(b), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := strconv.ParseInt(key, 10, 32)
		if err != nil {
			return bad(err)
		}
		return protoreflect.ValueOfInt32(int32(n)), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return bad(err)
		}
		return protoreflect.ValueOfInt64(n), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return bad(err)
		}
		return protoreflect.ValueOfUint32(uint32(n)), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return bad(err)
		}
		return protoreflect.ValueOfUint64(n), nil
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByName(protoreflect.Name(key)); ev != nil {
			return protoreflect.ValueOfEnum(ev.Number()), nil
		}
		return bad(errors.New("unknown enum value"))
	default:
		return protoreflect.Value{}, fmt.Errorf("source: unsupported key kind %s", fd.Kind())
	}
}

// LoadMethod reads a binary FileDescriptorSet and finds method, written as
// "pkg.Service/Method" or "pkg.Service.Method".
func LoadMethod(descriptorSetPath, method string) (protoreflect.MethodDescriptor, error) {
	data, err := os.ReadFile(descriptorSetPath)
	if err != nil {
		return nil, err
	}
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%s: %w", descriptorSetPath, err)
	}
	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", descriptorSetPath, err)
	}
	name := strings.TrimPrefix(method, "/")
	svcName, mName, ok := strings.Cut(name, "/")
	if !ok {
		idx := strings.LastIndexByte(name, '.')
		if idx < 0 {
			return nil, fmt.Errorf("source: malformed method name %q", method)
		}
		svcName, mName = name[:idx], name[idx+1:]
	}
	d, err := files.FindDescriptorByName(protoreflect.FullName(svcName))
	if err != nil {
		return nil, fmt.Errorf("source: service %s: %w", svcName, err)
	}
	svc, ok := d.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("source: %s is not a service", svcName)
	}
	md := svc.Methods().ByName(protoreflect.Name(mName))
	if md == nil {
		return nil, fmt.Errorf("source: service %s has no method %s", svcName, mName)
	}
	return md, nil
}
