// Package grpcapi exposes event validation over gRPC. Requests and responses
// are google.protobuf.Struct messages carrying the JSON event and report.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"event-validation-service/internal/models"
	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/schema"
)

const (
	ServiceName    = "eventvalidation.v1.EventValidator"
	ValidateMethod = "/" + ServiceName + "/Validate"
)

// EventValidatorServer is the server API for the EventValidator service.
type EventValidatorServer interface {
	Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the EventValidator service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventvalidation/v1/validator.proto",
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventValidatorServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ValidateMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventValidatorServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Validator checks one event.
type Validator interface {
	Validate(ctx context.Context, ev *models.Event) (*schema.Result, error)
}

type Server struct {
	validator Validator
	now       func() time.Time
}

// Register registers the EventValidator service on g.
func Register(g *grpc.Server, v Validator) *Server {
	s := &Server{
		validator: v,
		now:       time.Now,
	}
	g.RegisterService(&ServiceDesc, s)
	return s
}

// Validate validates the event carried by in and returns its report. A
// missing schema is NotFound; validation failures are reported, not errors.
func (s *Server) Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := in.MarshalJSON()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "encode event: %v", err)
	}
	var ev models.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode event: %v", err)
	}
	if ev.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "event name is required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	res, err := s.validator.Validate(ctx, &ev)
	if err != nil {
		if errors.Is(err, schema.ErrSchemaNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		log := logging.WithEvent(ev.Name, ev.Version, ev.ID)
		log.Error().Err(err).Msg("schema lookup failed")
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	out, err := toStruct(res.Report(&ev, s.now()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode report: %v", err)
	}
	return out, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}
