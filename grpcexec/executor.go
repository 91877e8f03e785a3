// Package grpcexec executes operations against a remote declaration source
// over gRPC, using a dynamically built descriptor so no generated stubs are
// needed on either side.
package grpcexec

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	registry "github.com/schemabus/schemabus/registry"
)

const fullMethod = "/graphql.Execution/Execute"

// Executor sends Execute RPCs to a remote source implementing the
// graphql.Execution service.
type Executor struct {
	cc   grpc.ClientConnInterface
	md   protoreflect.MethodDescriptor
	opts *Options
}

var _ registry.Executor = (*Executor)(nil)

// New builds an executor over an established client connection.
func New(cc grpc.ClientConnInterface, opts ...Option) (*Executor, error) {
	fd, err := FileDescriptor()
	if err != nil {
		return nil, err
	}
	svc := fd.Services().ByName("Execution")
	if svc == nil {
		return nil, fmt.Errorf("grpcexec: descriptor has no Execution service")
	}
	md := svc.Methods().ByName("Execute")
	if md == nil {
		return nil, fmt.Errorf("grpcexec: descriptor has no Execute method")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Executor{cc: cc, md: md, opts: o}, nil
}

func (e *Executor) Execute(ctx context.Context, req *registry.Request) (*registry.Response, error) {
	// The default timeout applies only when the caller did not set one.
	if _, ok := ctx.Deadline(); !ok && e.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RPCTimeout)
		defer cancel()
	}

	in := dynamicpb.NewMessage(e.md.Input())
	fields := e.md.Input().Fields()
	in.Set(fields.ByName("query"), protoreflect.ValueOfString(req.Query))
	if req.OperationName != "" {
		in.Set(fields.ByName("operation_name"), protoreflect.ValueOfString(req.OperationName))
	}
	if len(req.Variables) > 0 {
		vars, err := json.Marshal(req.Variables)
		if err != nil {
			return nil, fmt.Errorf("grpcexec: encode variables: %w", err)
		}
		in.Set(fields.ByName("variables_json"), protoreflect.ValueOfString(string(vars)))
	}

	out := dynamicpb.NewMessage(e.md.Output())
	if err := e.cc.Invoke(ctx, fullMethod, in, out, e.opts.CallOptions...); err != nil {
		return nil, err
	}
	return decodeResponse(out)
}

func decodeResponse(out *dynamicpb.Message) (*registry.Response, error) {
	resp := &registry.Response{}
	fields := out.Descriptor().Fields()

	if raw := out.Get(fields.ByName("data_json")).String(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &resp.Data); err != nil {
			return nil, fmt.Errorf("grpcexec: decode data: %w", err)
		}
	}
	errsList := out.Get(fields.ByName("errors")).List()
	for i := 0; i < errsList.Len(); i++ {
		resp.Errors = append(resp.Errors, errsList.Get(i).String())
	}
	return resp, nil
}
