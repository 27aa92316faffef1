package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travel-assistant/internal/api"
)

const correlationKey = "correlation_id"

// NewRouter wires the public endpoints.
// Operational: /health, /metrics
// API: /query, /get-chat, /get-chats, /admin/*
func NewRouter(svc api.Services, gatherer prometheus.Gatherer, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), correlation())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	h := &routes{svc: svc, logger: logger}
	h.register(r)
	return r
}

// correlation reuses the caller's X-Correlation-Id or assigns one, and
// echoes it on the response.
func correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(api.CorrelationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Header(api.CorrelationHeader, id)
		c.Next()
	}
}
