package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"

	"rateplans/internal/infra/broker/kafka"
	"rateplans/internal/infra/config"
	ginserver "rateplans/internal/infra/http/gin"
	"rateplans/internal/infra/messaging"
	"rateplans/internal/infra/obs"
	infraoutbox "rateplans/internal/infra/outbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env, getenv("LOG_LEVEL", "info"))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger = obs.NewLogger(cfg.Env, cfg.LogLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(registry)

	infra, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		logger.Error("infrastructure setup failed", "error", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		infra.close(closeCtx, logger)
	}()

	app := buildApplication(cfg, infra, logger, metrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = defaultFixturesPath()
	}
	if err := loadFixtures(ctx, infra.factory, fixturesPath, cfg.DefaultCurrency, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", fixturesPath)
	}

	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	var consumer *kafka.Consumer
	if cfg.KafkaEnabled() {
		kafkaProducer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Error("kafka producer failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer

		handler := &messaging.CalendarEventHandler{Bus: app.commands, Inbox: infra.inbox, Logger: logger}
		consumer, err = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, handler, logger)
		if err != nil {
			logger.Error("kafka consumer failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
	}
	worker := &infraoutbox.Worker{
		Store:       infra.relay,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: metrics}, obs.HealthHandlers{
		Probes: infra.probes,
	}, app.handlers)

	var background conc.WaitGroup
	background.Go(func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	})
	if consumer != nil {
		background.Go(func() {
			if err := consumer.Run(ctx, []string{cfg.CalendarTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("calendar consumer stopped", "error", err)
			}
		})
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "kafka", cfg.KafkaEnabled())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
	}
	stop()
	background.Wait()
	logger.Info("HTTP server stopped")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
