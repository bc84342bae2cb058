package server

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// DefaultMaxRecvMsgSize bounds request messages. Scoring requests carry a
// whole email body, so this matches the webhook body limit.
const DefaultMaxRecvMsgSize = 1 << 20

type Option func(*Options)

type Options struct {
	host              string
	port              int
	logger            *zap.Logger
	reflection        bool
	maxRecvMsgSize    int
	unaryInterceptors []grpc.UnaryServerInterceptor
	enableLogging     bool
	enableRequestID   bool
	enableRecovery    bool
}

// WithHost sets the interface to bind. Empty binds every interface.
func WithHost(host string) Option {
	return func(o *Options) { o.host = host }
}

func WithPort(port int) Option {
	return func(o *Options) { o.port = port }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func WithReflection(enabled bool) Option {
	return func(o *Options) { o.reflection = enabled }
}

// WithMaxRecvMsgSize overrides DefaultMaxRecvMsgSize.
func WithMaxRecvMsgSize(bytes int) Option {
	return func(o *Options) { o.maxRecvMsgSize = bytes }
}

// WithUnaryInterceptors appends interceptors after the built-in ones.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(o *Options) {
		o.unaryInterceptors = append(o.unaryInterceptors, interceptors...)
	}
}

func WithLogging(enabled bool) Option {
	return func(o *Options) { o.enableLogging = enabled }
}

// WithRequestIDs tags every call with an x-request-id.
func WithRequestIDs(enabled bool) Option {
	return func(o *Options) { o.enableRequestID = enabled }
}

// WithRecovery turns handler panics into Internal errors.
func WithRecovery(enabled bool) Option {
	return func(o *Options) { o.enableRecovery = enabled }
}

type Server struct {
	grpcServer   *grpc.Server
	lis          net.Listener
	logger       *zap.Logger
	healthServer *health.Server
}

func (o *Options) validate() error {
	if o.port < 0 || o.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 0 and 65535", o.port)
	}
	if o.maxRecvMsgSize <= 0 {
		return fmt.Errorf("invalid max message size %d: must be positive", o.maxRecvMsgSize)
	}
	return nil
}

// interceptorChain orders the built-in interceptors so that the request id is
// assigned before logging and panics are recovered inside the access log.
func (o *Options) interceptorChain(logger *zap.Logger) []grpc.UnaryServerInterceptor {
	var chain []grpc.UnaryServerInterceptor
	if o.enableRequestID {
		chain = append(chain, RequestIDInterceptor())
	}
	if o.enableLogging {
		chain = append(chain, LoggingInterceptor(logger.Named("grpc-access")))
	}
	if o.enableRecovery {
		chain = append(chain, RecoveryInterceptor(logger.Named("grpc-recovery")))
	}
	return append(chain, o.unaryInterceptors...)
}

// New creates a new gRPC server using the builder options. Port 0 binds an
// ephemeral port; Addr reports the one chosen.
func New(opts ...Option) (*Server, error) {
	options := &Options{
		port:           50051,
		logger:         zap.NewNop(),
		maxRecvMsgSize: DefaultMaxRecvMsgSize,
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := net.JoinHostPort(options.host, strconv.Itoa(options.port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	serverOpts := []grpc.ServerOption{grpc.MaxRecvMsgSize(options.maxRecvMsgSize)}
	if chain := options.interceptorChain(logger); len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}
	grpcServer := grpc.NewServer(serverOpts...)

	if options.reflection {
		reflection.Register(grpcServer)
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpcServer:   grpcServer,
		lis:          lis,
		logger:       logger.Named("grpc-server"),
		healthServer: healthServer,
	}, nil
}

// RegisterServiceWithHealth registers a service and marks it SERVING under
// serviceName.
func (s *Server) RegisterServiceWithHealth(serviceName string, registerFunc func(s *grpc.Server)) {
	registerFunc(s.grpcServer)

	if serviceName != "" {
		s.SetServiceHealth(serviceName, healthpb.HealthCheckResponse_SERVING)
	}
}

// SetServiceHealth updates the health status of a specific service.
func (s *Server) SetServiceHealth(serviceName string, status healthpb.HealthCheckResponse_ServingStatus) {
	s.healthServer.SetServingStatus(serviceName, status)
	s.logger.Info("updated service health",
		zap.String("service", serviceName),
		zap.String("status", status.String()))
}

// Start runs the server in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("gRPC server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.grpcServer.Serve(s.lis); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
}

// Shutdown marks every service NOT_SERVING, then drains in-flight calls
// until ctx expires, after which remaining calls are cut off.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.healthServer.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		// GracefulStop only closes listeners Serve was given.
		_ = s.lis.Close()
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
