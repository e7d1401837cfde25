package source

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CallRecord captures a single Call invocation for assertions.
type CallRecord struct {
	// FullMethod is "/<service full name>/<method>".
	FullMethod string
	// Request is a deep-cloned snapshot of the input.
	Request proto.Message
}

// MockTransport implements Transport with responses keyed by the value of
// the request's first field, recording every call.
type MockTransport struct {
	mu        sync.Mutex
	responses map[string]protoreflect.Message
	errs      map[string]error
	calls     []CallRecord
}

// NewMockTransport creates an empty MockTransport. Unknown keys are
// answered with an empty response message.
func NewMockTransport() *MockTransport {
	return &MockTransport{responses: map[string]protoreflect.Message{}, errs: map[string]error{}}
}

// Respond seeds the response for key.
func (m *MockTransport) Respond(key string, resp protoreflect.Message) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = resp
	return m
}

// Fail seeds an error for key.
func (m *MockTransport) Fail(key string, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key] = err
	return m
}

func (m *MockTransport) Call(_ context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full := fmt.Sprintf("/%s/%s", method.Parent().FullName(), method.Name())
	m.calls = append(m.calls, CallRecord{FullMethod: full, Request: proto.Clone(request.Interface())})

	fd := request.Descriptor().Fields().Get(0)
	key := fmt.Sprint(request.Get(fd).Interface())
	if err := m.errs[key]; err != nil {
		return nil, err
	}
	if resp, ok := m.responses[key]; ok {
		return resp, nil
	}
	return dynamicpb.NewMessage(method.Output()), nil
}

// Calls returns a snapshot of recorded Call invocations.
func (m *MockTransport) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.calls))
	copy(out, m.calls)
	return out
}
