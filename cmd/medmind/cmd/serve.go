package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/handler"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/middleware"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	slog.Info("starting medmind api", "port", cfg.Server.Port, "catalog_source", cfg.Catalog.Source)

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		return err
	}
	defer a.Close()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port, cfg.Server.ShutdownTimeout); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Required("catalog", health.CatalogProbe(a.catalog.Len))
	var redisProbe, postgresProbe health.Probe
	if a.redis != nil {
		redisProbe = a.redis.Ping
	}
	if a.postgres != nil {
		postgresProbe = a.postgres.Ping
	}
	checker.Optional("redis", redisProbe)
	checker.Optional("postgres", postgresProbe)

	h := handler.New(a.svc, cfg.Advice.RequestTimeout)
	if cfg.Advice.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Advice.RateLimit, time.Minute)
		go limiter.RunPruner(ctx, 5*time.Minute)
		h.LimitAdvice(limiter)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(a.metrics)(chain)
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("medmind api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("medmind api stopped")
	return nil
}
