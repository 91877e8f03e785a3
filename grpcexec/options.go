package grpcexec

import (
	"time"

	"google.golang.org/grpc"
)

// Options configures the executor behavior.
//
// Defaults:
// - RPCTimeout: 3s (used only if the incoming context has no deadline)
//
// All options are safe to leave zero-valued to use defaults.
type Options struct {
	RPCTimeout  time.Duration
	CallOptions []grpc.CallOption
}

// Option mutates Options. Use the WithX helpers below.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{RPCTimeout: 3 * time.Second}
}

func WithRPCTimeout(d time.Duration) Option { return func(o *Options) { o.RPCTimeout = d } }
func WithCallOptions(opts ...grpc.CallOption) Option {
	return func(o *Options) { o.CallOptions = opts }
}
