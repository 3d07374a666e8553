// Command clockd is the worker-facing terminal client: it signs in, shows the clock session and
// the hours worked today, and clocks in and out against the remote attendance API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/laborsync/internal/auth"
	"example.com/laborsync/internal/config"
	"example.com/laborsync/internal/events"
	"example.com/laborsync/internal/logging"
	"example.com/laborsync/internal/outbox"
	"example.com/laborsync/internal/remote"
	"example.com/laborsync/internal/session"
	"example.com/laborsync/internal/telemetry"
	httptransport "example.com/laborsync/internal/transport/http"
)

func main() {
	logFile := flag.String("log-file", "clockd.log", "log destination while the terminal UI owns stdout and stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	output := cfg.LoggerOutputPath
	if strings.EqualFold(output, "stdout") || strings.EqualFold(output, "stderr") {
		output = *logFile
	}
	logger, flush, err := logging.New(logging.Config{
		Level:       cfg.LoggerLevel,
		Format:      cfg.LoggerFormat,
		OutputPath:  output,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer flush()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName + "-clockd",
		ServiceVersion: "dev",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}

	token, err := resolveToken(cfg)
	if err != nil {
		log.Fatalf("resolve token: %v", err)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	var wg sync.WaitGroup
	var producer *outbox.KafkaProducer
	var stream *outbox.Publisher
	if cfg.PublishEvents() {
		producer = outbox.NewKafkaProducer(cfg.KafkaBrokers, cfg.RemoteTimeout)
		stream = outbox.NewPublisher(producer, cfg.EventsTopic,
			outbox.WithLogger(logger.Named("outbox")),
			outbox.WithFlushInterval(cfg.OutboxFlush),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithCapacity(cfg.OutboxCapacity),
		)
		publisher = stream
		go stream.Start(ctx)
	}

	client := remote.NewClient(cfg.APIURL, cfg.RemoteTimeout, remote.WithLogger(logger.Named("remote")))
	ctrl := session.NewController(client,
		session.WithLogger(logger.Named("session")),
		session.WithPublisher(publisher),
		session.WithRemoteTimeout(cfg.RemoteTimeout),
		session.WithBreakDuration(cfg.BreakDuration),
		session.WithIdleTimeout(cfg.IdleTimeout),
		session.WithTickInterval(cfg.TickInterval),
		session.WithNotificationTTL(cfg.NotificationTTL),
	)

	if err := ctrl.Authenticate(ctx, token); err != nil {
		logger.Error("sign in failed", zap.Error(err))
	}
	m := newModel(ctx, ctrl, token, 250*time.Millisecond, logger.Named("tui"))
	_ = m.refreshAll(ctx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("timer loop stopped", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), mux)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("terminal UI failed", zap.Error(err))
	}

	ctrl.Close()
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	if stream != nil {
		stream.Wait()
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close failed", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", zap.Error(err))
	}
}

// resolveToken returns the configured bearer token. In development an empty token is minted
// with the development API's signing secret.
func resolveToken(cfg config.Config) (string, error) {
	if cfg.APIToken != "" {
		return cfg.APIToken, nil
	}
	if !cfg.IsDevelopment() {
		return "", errors.New("LABORSYNC_TOKEN is required outside development")
	}
	return auth.Issue(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, cfg.Username, 12*time.Hour, time.Now())
}
