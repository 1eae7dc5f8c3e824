package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/interfaces"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements TraderControlServer on top of a runner.
type ControlService struct {
	Control interfaces.ITraderControl
	Logger  *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(control interfaces.ITraderControl, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ControlService{Control: control, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	if s.Control == nil {
		return nil, status.Error(codes.Unavailable, "no runner attached")
	}
	return toStruct(s.Control.Status())
}

// -----------------------------------------------------------------------------

// Panic accepts an optional "reason" field that is only logged.
func (s *ControlService) Panic(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.Control == nil {
		return nil, status.Error(codes.Unavailable, "no runner attached")
	}

	reason := req.GetFields()["reason"].GetStringValue()
	if reason == "" {
		reason = "unspecified"
	}
	s.Logger.Warning("gRPC: panic requested (reason: %s)", reason)

	trades, err := s.Control.Panic(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	if trades == nil {
		trades = []models.MTrade{}
	}
	return toStruct(map[string]interface{}{
		"closed":          trades,
		"signals_enabled": false,
	})
}

// -----------------------------------------------------------------------------

// ListTrades returns the closed trades, newest last. An optional "limit"
// keeps only the most recent ones.
func (s *ControlService) ListTrades(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.Control == nil {
		return nil, status.Error(codes.Unavailable, "no runner attached")
	}

	limit := 0
	if v, ok := req.GetFields()["limit"]; ok {
		n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
		if !isNumber || n.NumberValue < 0 || n.NumberValue != float64(int(n.NumberValue)) {
			return nil, status.Error(codes.InvalidArgument, "limit must be a non-negative integer")
		}
		limit = int(n.NumberValue)
	}

	trades := s.Control.Trades()
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	if trades == nil {
		trades = []models.MTrade{}
	}
	return toStruct(map[string]interface{}{"trades": trades, "count": len(trades)})
}

// -----------------------------------------------------------------------------

// toStruct goes through JSON so the struct tags of the models apply.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func grpcError(err error) error {
	switch {
	case errors.Is(err, helpers.ErrNonPositivePrice), errors.Is(err, helpers.ErrNoActivePosition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case helpers.IsInputError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -----------------------------------------------------------------------------
// Server lifecycle
// -----------------------------------------------------------------------------

type GrpcServer struct {
	Addr   string
	Logger *logger.Logger
	server *grpc.Server
}

func NewGrpcServer(cfg *models.MConfig, service TraderControlServer, log *logger.Logger) *GrpcServer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := grpc.NewServer()
	RegisterTraderControlServer(s, service)
	return &GrpcServer{
		Addr:   fmt.Sprintf("%s:%d", cfg.Server.GrpcHost, cfg.Server.GrpcPort),
		Logger: log,
		server: s,
	}
}

// Start blocks serving on Addr until Stop is called.
func (g *GrpcServer) Start() error {
	lis, err := net.Listen("tcp", g.Addr)
	if err != nil {
		return err
	}
	return g.Serve(lis)
}

// Serve blocks serving on an existing listener.
func (g *GrpcServer) Serve(lis net.Listener) error {
	g.Logger.Info("gRPC control listening on %s", lis.Addr())
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (g *GrpcServer) Stop() {
	g.server.GracefulStop()
}
