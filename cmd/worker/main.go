package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	mqcontracts "mailfilter/contracts/mq"
	"mailfilter/internal/ai"
	"mailfilter/internal/config"
	"mailfilter/internal/enrich"
	"mailfilter/internal/mqhandler"
	pkgconfig "mailfilter/pkg/config"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/mq"
	redisclient "mailfilter/pkg/redis"
	"mailfilter/pkg/retry"
	"mailfilter/pkg/util"
)

func main() {
	// Load config
	cfg, err := config.Load(pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.NewLogger(cfg.Log.Level)
	defer zl.Sync()

	zl.Info("Starting enrichment worker...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init Redis
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// Init AI client and enrichment service
	client := ai.NewClient(cfg.AI,
		ai.WithBreaker(ai.NewBreaker(cfg.Breaker, zl)),
		ai.WithLogger(zl),
	)
	if !client.HasCredential() {
		zl.Warn("AI API key is not configured, queued emails pass through unenriched")
	}
	enrichService := enrich.NewService(client,
		enrich.WithRetry(retry.New(retry.FromConfig(cfg.Retry), retry.WithLogger(zl))),
		enrich.WithCache(enrich.NewRedisCache(rdb, cfg.Enrich.CacheTTL)),
		enrich.WithLogger(zl),
	)

	// Init RabbitMQ publisher for email.enriched
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		zl.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Init consumer for email.enrich.requested
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, mqcontracts.RoutingKeyEnrichRequested, zl)
	if err != nil {
		zl.Fatal("failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	enrichHandler := mqhandler.NewEnrichRequestedHandler(
		enrichService,
		publisher,
		util.NewRetryCounter(rdb, cfg.Worker.RetryTTL),
		cfg.Worker.MaxRedeliveries,
		zl,
	)
	consumer.SetHandler(enrichHandler.Handle)

	zl.Info("Worker running",
		zap.String("queue", cfg.Worker.Queue),
		zap.String("routing_key", mqcontracts.RoutingKeyEnrichRequested),
	)

	// StartConsuming blocks until shutdown
	if err := consumer.StartConsuming(ctx); err != nil {
		zl.Error("consumer stopped", zap.Error(err))
	}
	zl.Info("Worker stopped")
}
