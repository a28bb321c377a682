package simd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/metrics"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ScalerServiceName is the fully qualified gRPC service name
const ScalerServiceName = "infrascaler.v1.ScalerService"

// ScalerGRPCServer serves sessions over gRPC. Requests and responses are
// google.protobuf.Struct messages carrying the same JSON documents as the
// HTTP API.
type ScalerGRPCServer struct {
	service *SessionService
}

// NewScalerGRPCServer creates a gRPC front end for service
func NewScalerGRPCServer(service *SessionService) *ScalerGRPCServer {
	return &ScalerGRPCServer{service: service}
}

// Register attaches the service to s
func (g *ScalerGRPCServer) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&scalerServiceDesc, g)
}

// ScalerServiceServer is the server API of the gRPC service
type ScalerServiceServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Advance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScaleUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Restart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(*ScalerGRPCServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, fn unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(*ScalerGRPCServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ScalerServiceName + "/" + name,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(*ScalerGRPCServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var scalerServiceDesc = grpc.ServiceDesc{
	ServiceName: ScalerServiceName,
	HandlerType: (*ScalerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: unaryHandler("CreateSession", (*ScalerGRPCServer).CreateSession)},
		{MethodName: "GetSession", Handler: unaryHandler("GetSession", (*ScalerGRPCServer).GetSession)},
		{MethodName: "DeleteSession", Handler: unaryHandler("DeleteSession", (*ScalerGRPCServer).DeleteSession)},
		{MethodName: "Advance", Handler: unaryHandler("Advance", (*ScalerGRPCServer).Advance)},
		{MethodName: "ScaleUp", Handler: unaryHandler("ScaleUp", (*ScalerGRPCServer).ScaleUp)},
		{MethodName: "Restart", Handler: unaryHandler("Restart", (*ScalerGRPCServer).Restart)},
		{MethodName: "Reset", Handler: unaryHandler("Reset", (*ScalerGRPCServer).Reset)},
		{MethodName: "RequestAdvice", Handler: unaryHandler("RequestAdvice", (*ScalerGRPCServer).RequestAdvice)},
		{MethodName: "GetAdvice", Handler: unaryHandler("GetAdvice", (*ScalerGRPCServer).GetAdvice)},
		{MethodName: "GetOutcome", Handler: unaryHandler("GetOutcome", (*ScalerGRPCServer).GetOutcome)},
		{MethodName: "GetMetricsSummary", Handler: unaryHandler("GetMetricsSummary", (*ScalerGRPCServer).GetMetricsSummary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "infrascaler/v1/scaler.proto",
}

func (g *ScalerGRPCServer) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opts := CreateOptions{
		ID:             stringField(req, "session_id"),
		CallbackURL:    stringField(req, "callback_url"),
		CallbackSecret: stringField(req, "callback_secret"),
	}
	if _, ok := req.GetFields()["seed"]; ok {
		seed, err := int64Field(req, "seed")
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		opts.Seed = &seed
	}

	sess, err := g.service.CreateSession(opts)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("session created (gRPC)", "session_id", sess.ID)
	return sessionResponse(sess)
}

func (g *ScalerGRPCServer) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := g.service.GetSession(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return sessionResponse(sess)
}

func (g *ScalerGRPCServer) DeleteSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := g.service.DeleteSession(stringField(req, "session_id")); err != nil {
		return nil, grpcError(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func (g *ScalerGRPCServer) Advance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := g.service.Advance(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return sessionResponse(sess)
}

func (g *ScalerGRPCServer) ScaleUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, ok := req.GetFields()["target_tier"]; !ok {
		return nil, status.Error(codes.InvalidArgument, "target_tier is required")
	}
	target, err := int64Field(req, "target_tier")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sess, err := g.service.ScaleUp(stringField(req, "session_id"), int(target))
	if err != nil {
		return nil, grpcError(err)
	}
	return sessionResponse(sess)
}

func (g *ScalerGRPCServer) Restart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := g.service.Restart(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return sessionResponse(sess)
}

func (g *ScalerGRPCServer) Reset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := g.service.Reset(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return sessionResponse(sess)
}

func (g *ScalerGRPCServer) RequestAdvice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	adv, err := g.service.RequestAdvice(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]any{"advice": adv})
}

func (g *ScalerGRPCServer) GetAdvice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	adv, err := g.service.GetAdvice(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]any{"advice": adv})
}

func (g *ScalerGRPCServer) GetOutcome(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o, err := g.service.GetOutcome(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]any{"outcome": o})
}

func (g *ScalerGRPCServer) GetMetricsSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	summary, err := g.service.MetricsSummary(stringField(req, "session_id"))
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(map[string]any{"summary": summary})
}

// sessionResponse wraps sess. The seed is sent as a decimal string since
// Struct numbers are doubles.
func sessionResponse(sess Session) (*structpb.Struct, error) {
	out, err := toStruct(map[string]any{"session": sess})
	if err != nil {
		return nil, err
	}
	if inner := out.GetFields()["session"].GetStructValue(); inner != nil {
		inner.Fields["seed"] = structpb.NewStringValue(strconv.FormatInt(sess.Seed, 10))
	}
	return out, nil
}

// toStruct converts v to a Struct through its JSON encoding
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to decode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return s, nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

// int64Field reads an integer sent either as a number or a decimal string
func int64Field(s *structpb.Struct, name string) (int64, error) {
	v := s.GetFields()[name]
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue != math.Trunc(k.NumberValue) {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int64(k.NumberValue), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// grpcError maps service and engine errors to status codes
func grpcError(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNoAdvice):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrSessionIDMissing),
		errors.Is(err, ErrInvalidSessionID),
		errors.Is(err, ErrInvalidURL),
		errors.Is(err, ErrMetadataEndpoint),
		errors.Is(err, ErrInternalHost),
		errors.Is(err, metrics.ErrUnknownMetric):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrSessionExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case engine.IsPreconditionError(err), errors.Is(err, ErrOutcomeNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrAdviceRateLimited), errors.Is(err, ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ScalerClient is a thin client for the gRPC service
type ScalerClient struct {
	cc grpc.ClientConnInterface
}

func NewScalerClient(cc grpc.ClientConnInterface) *ScalerClient {
	return &ScalerClient{cc: cc}
}

// Call invokes method with req and returns the response document
func (c *ScalerClient) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ScalerServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
