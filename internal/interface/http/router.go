package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seadrift/dive-insights/internal/domain/auth"
	"github.com/seadrift/dive-insights/internal/infra/config"
)

const requestIDKey = "requestID"

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, verifier auth.Verifier) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		corsMiddleware(),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api/v1")
	api.Use(authMiddleware(verifier))
	{
		api.POST("/dives/insight", handler.SummarizeDive)
		api.GET("/dives/export", handler.ExportDives)
		api.GET("/geocode", handler.Geocode)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "requestId", c.GetString(requestIDKey), "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
