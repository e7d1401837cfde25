package grpctp

import "errors"

var (
	// ErrNoEndpoints indicates the provider returned no endpoints for a service.
	ErrNoEndpoints = errors.New("grpctp: no endpoints available")
	// ErrNoProvider indicates the transport was built without WithProvider.
	ErrNoProvider = errors.New("grpctp: provider not configured")
	// ErrClosed is returned by calls on a closed transport.
	ErrClosed = errors.New("grpctp: closed")
)

// metadataRequestID carries the caller's request ID to upstream services.
const metadataRequestID = "x-restql-request-id"
