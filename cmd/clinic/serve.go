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

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/polyclinic/scheduler/internal/httpapi"
	"github.com/polyclinic/scheduler/internal/obs"
	"github.com/polyclinic/scheduler/internal/stream"
)

const healthProbeInterval = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the gRPC health endpoint",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	obs.Init()
	obs.InitBuildInfo(obs.Version, obs.Commit)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}
	authn, svc, err := newServices(cfg, store, mailer, logger)
	if err != nil {
		return err
	}

	loginLimiter := perWindow(cfg.Auth.LoginAttemptsPerMinute, time.Minute)
	defer loginLimiter.Close()
	resetLimiter := perWindow(cfg.Auth.ResetRequestsPerHour, time.Hour)
	defer resetLimiter.Close()

	probe := httpapi.ReadyProbe{DB: db}
	events := stream.New(32)
	api := httpapi.New(probe, obs.Version, authn, svc,
		httpapi.WithLoginLimiter(loginLimiter),
		httpapi.WithResetLimiter(resetLimiter),
		httpapi.WithRateLimit(cfg.HTTP.RateLimitBurst, cfg.HTTP.RateLimitPerSecond),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		httpapi.WithEvents(events),
	)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(events.Close)

	health := httpapi.NewHealthServer(probe)
	grpcSrv := httpapi.NewGRPCServer(health)
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.GRPC.Addr).Wrap(err)
	}

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go health.Run(healthCtx, healthProbeInterval)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "version", obs.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- oops.Code("LISTEN_FAILED").With("addr", srv.Addr).Wrap(err)
		}
	}()
	go func() {
		logger.Info("grpc health server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- oops.Code("LISTEN_FAILED").With("addr", cfg.GRPC.Addr).Wrap(err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		obs.LogError(ctx, logger, "server failed", runErr)
	}

	stopHealth()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.LogError(shutdownCtx, logger, "http shutdown", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("stopped")
	return runErr
}
