package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor(t *testing.T) {
	interceptor := LoggingInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/emailqc.v1.QualityControl/GetResult"}

	t.Run("successful request", func(t *testing.T) {
		resp, err := interceptor(context.Background(), "request", info, func(ctx context.Context, req any) (any, error) {
			return "success", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	})

	t.Run("error request", func(t *testing.T) {
		_, err := interceptor(context.Background(), "request", info, func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.InvalidArgument, "test error")
		})

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestRequestIDInterceptor(t *testing.T) {
	interceptor := RequestIDInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/emailqc.v1.QualityControl/GetResult"}
	capture := func(seen *string) grpc.UnaryHandler {
		return func(ctx context.Context, req any) (any, error) {
			*seen = RequestID(ctx)
			return nil, nil
		}
	}

	t.Run("assigns a new id", func(t *testing.T) {
		var seen string
		_, err := interceptor(context.Background(), nil, info, capture(&seen))

		require.NoError(t, err)
		_, err = uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("propagates the caller's id", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDKey, "req-42"))

		var seen string
		_, err := interceptor(ctx, nil, info, capture(&seen))

		require.NoError(t, err)
		assert.Equal(t, "req-42", seen)
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/emailqc.v1.QualityControl/ScoreEmail"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "ScoreEmail")

	resp, err = interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestServerBuilder(t *testing.T) {
	t.Run("rejects invalid ports", func(t *testing.T) {
		_, err := New(WithPort(70000))
		assert.ErrorContains(t, err, "invalid port 70000")
	})

	t.Run("rejects non-positive message limits", func(t *testing.T) {
		_, err := New(WithPort(0), WithMaxRecvMsgSize(0))
		assert.ErrorContains(t, err, "invalid max message size")
	})

	t.Run("shutdown before start releases the port", func(t *testing.T) {
		server, err := New(WithHost("127.0.0.1"), WithPort(0))
		require.NoError(t, err)
		addr := server.Addr().String()

		require.NoError(t, server.Shutdown(context.Background()))

		lis, err := net.Listen("tcp", addr)
		require.NoError(t, err)
		lis.Close()
	})

	t.Run("serves health checks with request ids", func(t *testing.T) {
		server, err := New(
			WithPort(0),
			WithLogger(zaptest.NewLogger(t)),
			WithLogging(true),
			WithRequestIDs(true),
			WithRecovery(true),
		)
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, server.Shutdown(context.Background()))
		}()

		require.NotNil(t, server.grpcServer)
		require.NotNil(t, server.healthServer)

		server.Start()

		conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
		require.NoError(t, err)
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var header metadata.MD
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{}, grpc.Header(&header))
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
		assert.Len(t, header.Get(RequestIDKey), 1)
	})
}
