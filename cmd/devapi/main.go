// Command devapi serves an in-memory attendance API for local development of the clock client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/laborsync/internal/api"
	"example.com/laborsync/internal/auth"
	"example.com/laborsync/internal/config"
	"example.com/laborsync/internal/logging"
	"example.com/laborsync/internal/store"
	"example.com/laborsync/internal/telemetry"
	httptransport "example.com/laborsync/internal/transport/http"
	"example.com/laborsync/internal/wire"
)

func main() {
	users := flag.String("users", "worker", "comma-separated usernames to print development tokens for")
	tokenTTL := flag.Duration("token-ttl", 12*time.Hour, "lifetime of printed development tokens")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, flush, err := logging.New(logging.Config{
		Level:       cfg.LoggerLevel,
		Format:      cfg.LoggerFormat,
		OutputPath:  cfg.LoggerOutputPath,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName + "-devapi",
		ServiceVersion: "dev",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	for _, user := range strings.Split(*users, ",") {
		user = strings.TrimSpace(user)
		if user == "" {
			continue
		}
		token, err := auth.Issue(authCfg, user, *tokenTTL, time.Now())
		if err != nil {
			logger.Fatal("issue development token", zap.String("username", user), zap.Error(err))
		}
		fmt.Printf("LABORSYNC_TOKEN for %s:\n%s\n", user, token)
	}

	handler := api.NewHandler(store.NewInMemoryStore(), api.WithLogger(logger.Named("api")))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	skipper := func(r *http.Request) bool {
		return r.URL.Path == wire.PathHealth || r.URL.Path == "/metrics"
	}
	authMiddleware := auth.NewMiddleware(authCfg, skipper)
	tracing := httptransport.Tracing("laborsync.devapi")
	requestLogger := httptransport.RequestLogger(logger.Named("http"))

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		tracing(requestLogger(authMiddleware.Wrap(mux))),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("devapi listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", zap.Error(err))
	}
}
