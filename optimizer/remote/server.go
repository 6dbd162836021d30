package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

// Config holds server settings.
type Config struct {
	// Address is the TCP listen address. Default: ":50051".
	Address string

	// GracefulTimeout bounds how long Serve waits for in-flight calls on
	// shutdown before forcing a stop. Default: 30s.
	GracefulTimeout time.Duration

	// TLSCertFile and TLSKeyFile enable TLS when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Address:         ":50051",
		GracefulTimeout: 30 * time.Second,
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithConfig replaces the server configuration. Zero fields keep their
// defaults.
func WithConfig(cfg Config) ServerOption {
	return func(s *Server) {
		if cfg.Address != "" {
			s.config.Address = cfg.Address
		}
		if cfg.GracefulTimeout > 0 {
			s.config.GracefulTimeout = cfg.GracefulTimeout
		}
		s.config.TLSCertFile = cfg.TLSCertFile
		s.config.TLSKeyFile = cfg.TLSKeyFile
	}
}

// WithServerLogger sets the logger. Defaults to slog.Default().
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGRPCOptions appends raw grpc.ServerOptions, such as interceptors.
func WithGRPCOptions(opts ...grpc.ServerOption) ServerOption {
	return func(s *Server) {
		s.grpcOpts = append(s.grpcOpts, opts...)
	}
}

// Server exposes an optimizer.Optimizer over gRPC together with the standard
// gRPC health service.
type Server struct {
	opt          optimizer.Optimizer
	config       Config
	logger       *slog.Logger
	grpcOpts     []grpc.ServerOption
	grpcServer   *grpc.Server
	healthServer *health.Server
}

// NewServer builds a Server for opt. Nothing listens until Serve.
func NewServer(opt optimizer.Optimizer, opts ...ServerOption) (*Server, error) {
	if opt == nil {
		return nil, errors.New("remote: optimizer is nil")
	}

	s := &Server{opt: opt, config: DefaultConfig()}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	grpcOpts := s.grpcOpts
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(s.config.TLSCertFile, s.config.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		grpcOpts = append(grpcOpts, grpc.Creds(creds))
	}

	s.grpcServer = grpc.NewServer(grpcOpts...)
	s.grpcServer.RegisterService(&serviceDesc, &service{opt: opt, logger: s.logger})

	s.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)

	return s, nil
}

// GRPCServer returns the underlying gRPC server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// HealthServer returns the health service, e.g. to report NOT_SERVING.
func (s *Server) HealthServer() *health.Server {
	return s.healthServer
}

// Listen opens a TCP listener on the configured address.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	return lis, nil
}

// Serve accepts calls on lis until ctx is cancelled, then stops gracefully.
// It returns nil after a shutdown triggered by ctx.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	s.logger.Info("optimizer server listening", "address", lis.Addr().String())

	select {
	case <-ctx.Done():
		s.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	}
}

// GracefulStop marks the server NOT_SERVING, waits up to GracefulTimeout for
// in-flight calls and then forces a stop.
func (s *Server) GracefulStop() {
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(s.config.GracefulTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.logger.Info("optimizer server stopped")
	case <-timer.C:
		s.logger.Warn("graceful shutdown timed out, forcing stop")
		s.grpcServer.Stop()
		<-done
	}
}

// service adapts an optimizer.Optimizer to the gRPC handler.
type service struct {
	opt    optimizer.Optimizer
	logger *slog.Logger
}

type response struct {
	SSAPath path.Path `json:"ssa_path"`
}

func (s *service) Optimize(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	requestID := requestIDFrom(ctx)
	logger := s.logger.With("request_id", requestID)

	var req optimizer.Request
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	start := time.Now()
	p, err := s.opt.Optimize(ctx, &req)
	if err != nil {
		logger.Warn("optimize failed", "op", req.Op, "error", err)
		return nil, toStatus(err)
	}
	if p == nil {
		p = path.Path{}
	}

	data, err := json.Marshal(response{SSAPath: p})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}

	logger.Debug("optimize finished", "op", req.Op, "steps", len(p), "duration", time.Since(start))
	return wrapperspb.Bytes(data), nil
}

func requestIDFrom(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(requestIDKey); len(ids) > 0 && ids[0] != "" {
			return ids[0]
		}
	}
	return uuid.NewString()
}
