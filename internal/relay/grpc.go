package relay

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "wmglue.relay.v1.Relay"

const (
	methodGet   = "/" + serviceName + "/Get"
	methodPut   = "/" + serviceName + "/Put"
	methodWatch = "/" + serviceName + "/Watch"
)

// RelayServer is the server side of the wmglue.relay.v1.Relay service.
// Messages are protobuf well-known types so no generated code is needed.
type RelayServer interface {
	Get(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Put(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

// ServiceDesc describes the relay service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Put", Handler: putHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "wmglue/relay/v1/relay.proto",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGet}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Get(ctx, req.(*emptypb.Empty))
	})
}

func putHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPut}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Put(ctx, req.(*structpb.Struct))
	})
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RelayServer).Watch(in, stream)
}

// Service implements RelayServer on top of a Store.
type Service struct {
	store *Store
	token string // empty = no auth
}

// NewService returns a Service backed by store. token may be empty to
// disable auth.
func NewService(store *Store, token string) *Service {
	return &Service{store: store, token: token}
}

// Register adds the relay service to s.
func (svc *Service) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, svc)
}

func (svc *Service) Get(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := svc.auth(ctx); err != nil {
		return nil, err
	}
	return stateToStruct(svc.store.Get()), nil
}

func (svc *Service) Put(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := svc.auth(ctx); err != nil {
		return nil, err
	}
	fields := req.GetFields()
	content, ok := fields["content"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "content is required")
	}
	t, ok := fields["time"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "time is required")
	}
	res := svc.store.Put(content.GetStringValue(), t.GetNumberValue())
	return putResultToStruct(res), nil
}

func (svc *Service) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	if err := svc.auth(ctx); err != nil {
		return err
	}

	ch, cancel := svc.store.Subscribe()
	defer cancel()

	slog.Info("relay watch started")
	defer slog.Info("relay watch ended")

	if cur := svc.store.Get(); cur.Content != "" {
		if err := stream.SendMsg(stateToStruct(cur)); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-ch:
			if err := stream.SendMsg(stateToStruct(st)); err != nil {
				return err
			}
		}
	}
}

// auth validates the bearer token in ctx metadata. Skipped when svc.token is empty.
func (svc *Service) auth(ctx context.Context) error {
	if svc.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	tok := strings.TrimPrefix(vals[0], "Bearer ")
	if subtle.ConstantTimeCompare([]byte(tok), []byte(svc.token)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func stateToStruct(st State) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"content": structpb.NewStringValue(st.Content),
		"time":    structpb.NewNumberValue(st.Time),
	}}
}

func structToState(s *structpb.Struct) State {
	f := s.GetFields()
	return State{
		Content: f["content"].GetStringValue(),
		Time:    f["time"].GetNumberValue(),
	}
}

func putResultToStruct(r PutResult) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"status": structpb.NewNumberValue(float64(r.Status)),
	}
	if r.Accepted() {
		fields["content"] = structpb.NewStringValue(r.Content)
		fields["time"] = structpb.NewNumberValue(r.Time)
	}
	return &structpb.Struct{Fields: fields}
}

func structToPutResult(s *structpb.Struct) PutResult {
	f := s.GetFields()
	return PutResult{
		Status:  int(f["status"].GetNumberValue()),
		Content: f["content"].GetStringValue(),
		Time:    f["time"].GetNumberValue(),
	}
}
