package grpctp

import (
	"time"

	"google.golang.org/grpc"
)

// Options configures a Transport.
//
// Defaults:
//   - Failover: 1, so an Unavailable endpoint is retried once on the next one
//   - RPCTimeout: 3s per attempt, when the incoming context has no deadline
//   - DialOptions: insecure credentials with default backoff
type Options struct {
	Provider    EndpointProvider
	Failover    int
	RPCTimeout  time.Duration
	DialOptions []grpc.DialOption
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{Failover: 1, RPCTimeout: 3 * time.Second}
}

func WithProvider(p EndpointProvider) Option { return func(o *Options) { o.Provider = p } }

// WithFailover sets how many further endpoints are tried after one answers
// codes.Unavailable. Zero disables failover.
func WithFailover(n int) Option { return func(o *Options) { o.Failover = n } }

func WithRPCTimeout(d time.Duration) Option { return func(o *Options) { o.RPCTimeout = d } }

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *Options) { o.DialOptions = opts }
}
