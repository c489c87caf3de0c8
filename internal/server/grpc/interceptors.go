// Package grpcserver runs the gRPC health endpoint of the service.
package grpcserver

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// requestIDKey is the metadata twin of the X-Request-ID HTTP header.
const requestIDKey = "x-request-id"

// LoggingUnary logs one line per call. Health probes succeed every few seconds,
// so successful health calls go to Debug.
func LoggingUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", peerAddr(ctx)),
		}
		if id := requestID(ctx); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		log.Log(levelFor(info.FullMethod, code), "grpc", fields...)
		return resp, err
	}
}

func levelFor(method string, code codes.Code) zapcore.Level {
	switch {
	case code == codes.OK && strings.HasPrefix(method, "/grpc.health.v1."):
		return zap.DebugLevel
	case code == codes.OK, code == codes.NotFound, code == codes.Canceled:
		return zap.InfoLevel
	case code == codes.Internal, code == codes.Unknown, code == codes.DataLoss:
		return zap.ErrorLevel
	default:
		return zap.WarnLevel
	}
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(requestIDKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

// RecoverUnary turns a handler panic into codes.Internal.
func RecoverUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
					zap.String("request_id", requestID(ctx)),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return next(ctx, req)
	}
}
