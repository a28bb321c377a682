package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/advisor"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/simd"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var grpcAddr, httpAddr, catalogPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host sessions over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("grpc-addr") {
				cfg.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("catalog") {
				cfg.CatalogPath = catalogPath
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", ":50051", "gRPC listen address (empty disables gRPC)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address (empty disables HTTP)")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "tier catalog YAML (defaults to the built-in catalog)")
	return cmd
}

func serve(parent context.Context, cfg *config.ServerConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	pm := policy.NewPolicyManager(cfg)
	adv := advisor.FromConfig(cfg.Advisor, pm)
	if svc, ok := adv.(*advisor.Service); ok {
		svc.SetLogger(logger.With("component", "advisor"))
		logger.Debug("advisor retry schedule",
			"delays", utils.Schedule(utils.BackoffFromConfig(cfg.Advisor.Backoff, cfg.Advisor.BaseDelay, cfg.Advisor.MaxDelay), cfg.Advisor.MaxRetries))
	}

	service := simd.NewSessionService(
		simd.NewSessionStore(cfg.Sessions.MaxSessions),
		catalog,
		adv,
		simd.NewNotifierFromConfig(cfg.Notifier),
		pm.GetRateLimiting(),
	)
	defer service.Close()

	logger.Info("catalog loaded",
		"tiers", len(catalog.Tiers),
		"max_rounds", catalog.Rules.MaxRounds,
		"advisor_enabled", cfg.Advisor.Enabled)

	errCh := make(chan error, 2)

	// TODO: add TLS and auth to the gRPC listener before exposing it outside a trusted network.
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer = grpc.NewServer()
		simd.NewScalerGRPCServer(service).Register(grpcServer)

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           simd.NewHTTPServer(service).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			// no WriteTimeout: /events streams for the length of a session
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case runErr = <-errCh:
		logger.Error("server failed", "error", runErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", "error", err)
		}
	}
	return runErr
}
