// Package events defines the lifecycle events published on the eventbus.
// Handlers receive the request context, so reqid.FromContext ties events
// of one request together.
package events

import (
	"net/http"
	"time"

	"google.golang.org/grpc/codes"
)

// HTTPStart is emitted when the server receives a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response is written. Err is the error
// rendered into the response body, if any.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Err      error
	Duration time.Duration
}

// GRPCClientStart is emitted before a source RPC is sent to Endpoint.
type GRPCClientStart struct {
	Service  string
	Method   string
	Endpoint string
}

// GRPCClientFinish is emitted after a source RPC returns.
type GRPCClientFinish struct {
	Service  string
	Method   string
	Endpoint string
	Code     codes.Code
	Err      error
	Duration time.Duration
}
