// Package qcv1 describes the QualityControl gRPC service. Messages are
// protobuf well-known types: structured payloads travel as
// google.protobuf.Struct, identifiers as Int64Value.
package qcv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "emailqc.v1.QualityControl"

const (
	MethodScoreEmail                     = "ScoreEmail"
	MethodGetResult                      = "GetResult"
	MethodGetAgentHistory                = "GetAgentHistory"
	MethodGetOverallQualityScore         = "GetOverallQualityScore"
	MethodGetAggregatedSubScores         = "GetAggregatedSubScores"
	MethodGetScoresByAgent               = "GetScoresByAgent"
	MethodGetPeriodOverPeriodScoreChange = "GetPeriodOverPeriodScoreChange"
	MethodReconcile                      = "Reconcile"
)

// FullMethod returns the /service/method path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// QualityControlServer is the server API for the QualityControl service.
type QualityControlServer interface {
	ScoreEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResult(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	GetAgentHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOverallQualityScore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAggregatedSubScores(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetScoresByAgent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPeriodOverPeriodScoreChange(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reconcile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedQualityControlServer can be embedded for forward compatibility.
type UnimplementedQualityControlServer struct{}

func (UnimplementedQualityControlServer) ScoreEmail(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ScoreEmail not implemented")
}
func (UnimplementedQualityControlServer) GetResult(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetResult not implemented")
}
func (UnimplementedQualityControlServer) GetAgentHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAgentHistory not implemented")
}
func (UnimplementedQualityControlServer) GetOverallQualityScore(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOverallQualityScore not implemented")
}
func (UnimplementedQualityControlServer) GetAggregatedSubScores(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAggregatedSubScores not implemented")
}
func (UnimplementedQualityControlServer) GetScoresByAgent(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetScoresByAgent not implemented")
}
func (UnimplementedQualityControlServer) GetPeriodOverPeriodScoreChange(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPeriodOverPeriodScoreChange not implemented")
}
func (UnimplementedQualityControlServer) Reconcile(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Reconcile not implemented")
}

func unary[Req proto.Message](name string, newReq func() Req, call func(QualityControlServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(name)}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(QualityControlServer), ctx, req.(Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			i := *info
			i.Server = srv
			return interceptor(ctx, in, &i, handler)
		},
	}
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newInt64() *wrapperspb.Int64Value { return &wrapperspb.Int64Value{} }
func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }

// ServiceDesc is the grpc.ServiceDesc for the QualityControl service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QualityControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodScoreEmail, newStruct, QualityControlServer.ScoreEmail),
		unary(MethodGetResult, newInt64, QualityControlServer.GetResult),
		unary(MethodGetAgentHistory, newStruct, QualityControlServer.GetAgentHistory),
		unary(MethodGetOverallQualityScore, newStruct, QualityControlServer.GetOverallQualityScore),
		unary(MethodGetAggregatedSubScores, newStruct, QualityControlServer.GetAggregatedSubScores),
		unary(MethodGetScoresByAgent, newStruct, QualityControlServer.GetScoresByAgent),
		unary(MethodGetPeriodOverPeriodScoreChange, newStruct, QualityControlServer.GetPeriodOverPeriodScoreChange),
		unary(MethodReconcile, newEmpty, QualityControlServer.Reconcile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "emailqc/v1/qualitycontrol.proto",
}

// RegisterQualityControlServer registers srv on s.
func RegisterQualityControlServer(s grpc.ServiceRegistrar, srv QualityControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// QualityControlClient is the client API for the QualityControl service.
type QualityControlClient struct {
	cc grpc.ClientConnInterface
}

func NewQualityControlClient(cc grpc.ClientConnInterface) *QualityControlClient {
	return &QualityControlClient{cc: cc}
}

func invoke[Resp any, PResp interface {
	*Resp
	proto.Message
}](ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message, opts ...grpc.CallOption) (PResp, error) {
	out := PResp(new(Resp))
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QualityControlClient) ScoreEmail(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodScoreEmail, in, opts...)
}

func (c *QualityControlClient) GetResult(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetResult, in, opts...)
}

func (c *QualityControlClient) GetAgentHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetAgentHistory, in, opts...)
}

func (c *QualityControlClient) GetOverallQualityScore(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetOverallQualityScore, in, opts...)
}

func (c *QualityControlClient) GetAggregatedSubScores(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetAggregatedSubScores, in, opts...)
}

func (c *QualityControlClient) GetScoresByAgent(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetScoresByAgent, in, opts...)
}

func (c *QualityControlClient) GetPeriodOverPeriodScoreChange(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodGetPeriodOverPeriodScoreChange, in, opts...)
}

func (c *QualityControlClient) Reconcile(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, MethodReconcile, in, opts...)
}
