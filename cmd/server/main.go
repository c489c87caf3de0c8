// Command grocer-server runs the customer HTTP API and a gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/grocer/internal/config"
	"github.com/and161185/grocer/internal/crypto"
	"github.com/and161185/grocer/internal/limiter"
	"github.com/and161185/grocer/internal/migrate"
	"github.com/and161185/grocer/internal/repository/postgres"
	grpcserver "github.com/and161185/grocer/internal/server/grpc"
	httpserver "github.com/and161185/grocer/internal/server/http"
	"github.com/and161185/grocer/internal/service"
	"github.com/and161185/grocer/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.LoadFromOS()
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("health", cfg.HealthAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	accounts := postgres.NewAccountRepo(db)
	sessions := postgres.NewSessionRepo(db)
	addresses := postgres.NewAddressRepo(db)

	lim := limiter.NewPG(db.Pool, limiter.Config{
		Window:   cfg.LimiterWindow,
		MaxFails: cfg.LimiterMaxFails,
		BlockFor: cfg.LimiterBlockFor,
	})

	// Services
	customers := service.NewCustomerService(accounts, sessions,
		crypto.NewPasswordProvider(),
		token.New([]byte(cfg.TokenSecret)),
		service.WithLimiter(lim),
		service.WithPasswordPolicy(service.PasswordPolicy{MinLength: cfg.PasswordMinLength}),
	)
	addressSvc := service.NewAddressService(customers, addresses)

	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpserver.NewServer(cfg.HTTPAddr, httpserver.NewRouter(httpserver.Deps{
		Customers:   customers,
		Addresses:   addressSvc,
		DB:          db,
		Log:         logger,
		CORSOrigins: cfg.CORSOrigins,
	}))

	// Health (gRPC)
	health := grpcserver.NewHealth(db, grpcserver.DefaultProbeInterval, logger)
	gs := grpcserver.NewServer(health, logger, cfg.Dev)
	lis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	go health.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("health listening", zap.String("addr", cfg.HealthAddr))
		errCh <- gs.Serve(lis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		gs.Stop()
	}

	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}
