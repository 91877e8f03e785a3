package grpcexec

import (
	"io"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"github.com/jhump/protoreflect/v2/protoprint"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FileDescriptor synthesizes the proto definition of the execution service a
// remote declaration source implements:
//
//	service Execution {
//	  rpc Execute(ExecuteRequest) returns (ExecuteResponse);
//	}
//
// Variables and data travel as JSON strings so the contract stays stable
// across schema changes on either side.
func FileDescriptor() (protoreflect.FileDescriptor, error) {
	fb := protobuilder.NewFile("graphql/execution.proto")
	fb.SetPackageName(protoreflect.FullName("graphql"))
	fb.SetSyntax(protoreflect.Proto3)

	req := protobuilder.NewMessage("ExecuteRequest")
	req.AddField(protobuilder.NewField("query", protobuilder.FieldTypeScalar(protoreflect.StringKind)))
	req.AddField(protobuilder.NewField("operation_name", protobuilder.FieldTypeScalar(protoreflect.StringKind)))
	req.AddField(protobuilder.NewField("variables_json", protobuilder.FieldTypeScalar(protoreflect.StringKind)))
	fb.AddMessage(req)

	resp := protobuilder.NewMessage("ExecuteResponse")
	resp.AddField(protobuilder.NewField("data_json", protobuilder.FieldTypeScalar(protoreflect.StringKind)))
	resp.AddField(protobuilder.NewField("errors", protobuilder.FieldTypeScalar(protoreflect.StringKind)).SetRepeated())
	fb.AddMessage(resp)

	svc := protobuilder.NewService("Execution")
	svc.AddMethod(protobuilder.NewMethod(
		"Execute",
		protobuilder.RpcTypeMessage(req, false),
		protobuilder.RpcTypeMessage(resp, false),
	))
	fb.AddService(svc)

	return fb.Build()
}

// RenderProto writes the execution service definition as a .proto file, for
// remote source implementers to generate servers from.
func RenderProto(w io.Writer) error {
	fd, err := FileDescriptor()
	if err != nil {
		return err
	}
	pp := protoprint.Printer{}
	return pp.PrintProtoFile(fd, w)
}
