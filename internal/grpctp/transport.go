// Package grpctp sends entity lookups to upstream gRPC services. It
// implements source.Transport for the descriptor-driven gRPC source.
package grpctp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/hanpama/restql/internal/eventbus"
	"github.com/hanpama/restql/internal/events"
	"github.com/hanpama/restql/internal/reqid"
	"github.com/hanpama/restql/internal/source"
)

// Transport invokes unary methods with dynamic messages. Endpoints come
// from the EndpointProvider on every call and are used round robin; one
// client connection is kept per endpoint until Close.
type Transport struct {
	opts *Options
	next atomic.Uint64

	mu     sync.Mutex
	conns  map[string]*grpc.ClientConn
	closed bool
}

func New(opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Transport{opts: o, conns: make(map[string]*grpc.ClientConn)}
}

var _ source.Transport = (*Transport)(nil)

// Call sends request to method. The request ID of ctx, if any, travels as
// metadata. When an endpoint answers codes.Unavailable the call moves on
// to the next endpoint, up to the configured failover count.
func (t *Transport) Call(ctx context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}
	if t.opts.Provider == nil {
		return nil, ErrNoProvider
	}
	service := string(method.Parent().FullName())
	endpoints, err := t.opts.Provider.Endpoints(ctx, service)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if id, ok := reqid.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, metadataRequestID, reqid.Format(id))
	}

	attempts := min(1+max(t.opts.Failover, 0), len(endpoints))
	first := int(t.next.Add(1) % uint64(len(endpoints)))
	for i := 0; ; i++ {
		endpoint := endpoints[(first+i)%len(endpoints)]
		resp, err := t.attempt(ctx, endpoint, method, request)
		if err == nil || i+1 == attempts || status.Code(err) != codes.Unavailable || ctx.Err() != nil {
			return resp, err
		}
	}
}

func (t *Transport) attempt(ctx context.Context, endpoint string, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	cc, err := t.conn(endpoint)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok && t.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.RPCTimeout)
		defer cancel()
	}

	service := string(method.Parent().FullName())
	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: service, Method: string(method.Name()), Endpoint: endpoint})
	resp := dynamicpb.NewMessage(method.Output())
	err = cc.Invoke(ctx, "/"+service+"/"+string(method.Name()), request.Interface(), resp)
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service:  service,
		Method:   string(method.Name()),
		Endpoint: endpoint,
		Code:     status.Code(err),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// conn returns the shared connection to endpoint, creating it lazily.
// grpc.NewClient does not dial, so holding the lock here is cheap.
func (t *Transport) conn(endpoint string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if cc := t.conns[endpoint]; cc != nil {
		return cc, nil
	}
	cc, err := grpc.NewClient(endpoint, t.opts.DialOptions...)
	if err != nil {
		return nil, err
	}
	t.conns[endpoint] = cc
	return cc, nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close closes every connection. Calls after Close fail with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for ep, cc := range t.conns {
		_ = cc.Close()
		delete(t.conns, ep)
	}
	return nil
}
