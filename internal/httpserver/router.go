package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mailfilter/internal/handler"
	"mailfilter/pkg/logger"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Handlers struct {
	Filter *handler.FilterHandler
	Enrich *handler.EnrichHandler
	Email  *handler.EmailHandler
	Report *handler.ReportHandler
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, log *zap.Logger, checks map[string]ReadinessCheck) *Router {
	log = logger.OrNop(log)

	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware(), AccessLogMiddleware(log))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/filters/apply", h.Filter.Apply)
		api.POST("/rules/validate", h.Filter.Validate)

		api.POST("/enrich/sentiment", h.Enrich.Sentiment)
		api.POST("/enrich/summary", h.Enrich.Summary)
		api.POST("/enrich/replies", h.Enrich.Replies)
		api.POST("/enrich/batch", h.Enrich.Batch)
		api.POST("/enrich/queue", h.Enrich.Queue)

		api.GET("/emails/mock", h.Email.Mock)
		api.POST("/emails/parse", h.Email.Parse)

		api.POST("/reports", h.Report.Build)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}

// Server wraps the engine in an http.Server for graceful shutdown.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
