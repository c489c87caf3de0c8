package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported besides the overall "" entry.
const ServiceName = "grocer.Customer"

// DefaultProbeInterval is the period between two database pings.
const DefaultProbeInterval = 10 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health publishes SERVING while the probe succeeds and NOT_SERVING otherwise.
type Health struct {
	hs      *health.Server
	probe   Pinger
	every   time.Duration
	timeout time.Duration
	log     *zap.Logger
}

// NewHealth constructs a Health starting in NOT_SERVING until the first probe.
func NewHealth(probe Pinger, every time.Duration, log *zap.Logger) *Health {
	if every <= 0 {
		every = DefaultProbeInterval
	}
	h := &Health{hs: health.NewServer(), probe: probe, every: every, timeout: every / 2, log: log}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// NewServer builds a gRPC server with the interceptor chain, health service and,
// in dev mode, reflection.
func NewServer(h *Health, log *zap.Logger, dev bool) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
	)
	healthpb.RegisterHealthServer(s, h.hs)
	if dev {
		reflection.Register(s)
	}
	return s
}

// Run probes until ctx is done, then marks every service NOT_SERVING.
func (h *Health) Run(ctx context.Context) {
	h.Check(ctx)
	t := time.NewTicker(h.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}

// Check runs one probe and publishes its outcome.
func (h *Health) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.probe.Ping(pctx); err != nil {
		h.log.Warn("health probe failed", zap.Error(err))
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return true
}

func (h *Health) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}
