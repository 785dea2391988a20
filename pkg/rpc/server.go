package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/joripage/order-manager/pkg/logging"
	"github.com/joripage/order-manager/pkg/oms"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/rpc/omspb"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const requestIDHeader = "x-request-id"

type Submitter interface {
	Submit(ctx context.Context, req model.TradeRequest) (string, error)
}

type SubmitObserver interface {
	ObserveSubmit(outcome string, d time.Duration)
}

type Server struct {
	omspb.UnimplementedOrderManagerServer

	oms      Submitter
	observer SubmitObserver
	logger   *zap.Logger
}

func NewServer(submitter Submitter, observer SubmitObserver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{oms: submitter, observer: observer, logger: logger}
}

// SendTradeOrder answers business rejections in the response body; only
// cancellation and internal failures become gRPC errors.
func (s *Server) SendTradeOrder(ctx context.Context, in *omspb.TradeRequest) (*omspb.TradeResponse, error) {
	start := time.Now()
	id, err := s.oms.Submit(ctx, toModel(in))

	outcome := "ok"
	defer func() {
		if s.observer != nil {
			s.observer.ObserveSubmit(outcome, time.Since(start))
		}
	}()

	switch {
	case err == nil:
		return &omspb.TradeResponse{Success: true, OrderId: id, Message: "order accepted"}, nil
	case errors.Is(err, oms.ErrInvalidRequest):
		outcome = "invalid"
		return &omspb.TradeResponse{Message: err.Error()}, nil
	case errors.Is(err, oms.ErrOverloaded):
		outcome = "overloaded"
		return &omspb.TradeResponse{Message: err.Error()}, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
		return nil, status.FromContextError(err).Err()
	default:
		outcome = "error"
		logging.FromContext(ctx, s.logger).Error("submit failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "order could not be created")
	}
}

// RequestIDInterceptor tags the call context with the caller's x-request-id,
// or a fresh one, and logs the call.
func RequestIDInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(requestIDHeader); len(v) > 0 {
				reqID = v[0]
			}
		}
		if reqID == "" {
			reqID = logging.NewRequestID()
		}
		ctx = logging.WithRequestID(ctx, reqID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, reqID))

		start := time.Now()
		resp, err := handler(ctx, req)
		logging.FromContext(ctx, logger).Info("grpc call",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()))
		return resp, err
	}
}

// NewGRPCServer builds a server with the order manager and health services.
func NewGRPCServer(srv omspb.OrderManagerServer, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(RequestIDInterceptor(logger))}, opts...)
	gs := grpc.NewServer(opts...)
	omspb.RegisterOrderManagerServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

// Serve runs gs on lis until ctx is done, then drains in-flight calls.
func Serve(ctx context.Context, gs *grpc.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// ListenAndServe listens on addr and calls Serve.
func ListenAndServe(ctx context.Context, gs *grpc.Server, addr string, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
	return Serve(ctx, gs, lis)
}
