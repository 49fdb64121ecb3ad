package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailfilter/internal/ai"
	"mailfilter/internal/config"
	"mailfilter/internal/enrich"
	"mailfilter/internal/filter"
	"mailfilter/internal/forward"
	"mailfilter/internal/handler"
	"mailfilter/internal/httpserver"
	"mailfilter/internal/mock"
	pkgconfig "mailfilter/pkg/config"
	"mailfilter/pkg/logger"
	"mailfilter/pkg/mq"
	redisclient "mailfilter/pkg/redis"
	"mailfilter/pkg/retry"
	"mailfilter/pkg/util"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.NewLogger(cfg.Log.Level)
	defer zl.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Init Redis (缓存和转发去重，不可用时降级)
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := redisclient.Ping(ctx, rdb, 2*time.Second); err != nil {
		zl.Warn("Redis unavailable, enrichment cache and forward dedup will fail open", zap.Error(err))
	}

	// 3. Init RabbitMQ publisher (optional)
	var publisher mq.EventPublisher
	pub, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		zl.Warn("RabbitMQ unavailable, forwarding is log-only and queueing is disabled", zap.Error(err))
	} else {
		defer pub.Close()
		publisher = pub
	}

	// 4. Init AI client and enrichment service
	client := ai.NewClient(cfg.AI,
		ai.WithBreaker(ai.NewBreaker(cfg.Breaker, zl)),
		ai.WithLogger(zl),
	)
	if !client.HasCredential() {
		zl.Warn("AI API key is not configured, enrichment answers with fallback values")
	}
	wrapper := retry.New(retry.FromConfig(cfg.Retry), retry.WithLogger(zl))
	enrichService := enrich.NewService(client,
		enrich.WithRetry(wrapper),
		enrich.WithCache(enrich.NewRedisCache(rdb, cfg.Enrich.CacheTTL)),
		enrich.WithLogger(zl),
	)

	// 5. Init filter engine
	var hook filter.ForwardHook = filter.LogForwardHook{Logger: zl}
	if publisher != nil {
		hook = forward.NewForwarder(publisher, util.NewDeduper(rdb, cfg.Forward.DedupTTL, zl), zl)
	}
	engine := filter.NewEngine(
		filter.WithLogger(zl),
		filter.WithForwardHook(hook),
		filter.WithMetrics(true),
	)

	// 6. Init handlers
	handlers := httpserver.Handlers{
		Filter: handler.NewFilterHandler(engine),
		Enrich: handler.NewEnrichHandler(enrichService, publisher, zl).WithConcurrency(cfg.Enrich.Concurrency),
		Email:  handler.NewEmailHandler(mock.NewGenerator(cfg.Mock.Seed)),
		Report: handler.NewReportHandler(),
	}

	// 7. Init router
	router := httpserver.NewRouter(handlers, zl, map[string]httpserver.ReadinessCheck{
		"redis": func(ctx context.Context) error {
			return redisclient.Ping(ctx, rdb, time.Second)
		},
	})

	// 8. Run server
	srv := router.Server(cfg.Server.Port)
	go func() {
		zl.Info("HTTP server listening", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
}
