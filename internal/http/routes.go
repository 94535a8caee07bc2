package http

import (
	"shibads/internal/http/handlers"
	"shibads/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts health, metrics and the API endpoint. limiter
// throttles the API per client IP and may be nil.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, limiter gin.HandlerFunc) {
	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chain := []gin.HandlerFunc{}
	if limiter != nil {
		chain = append(chain, limiter)
	}
	chain = append(chain, h.API)

	// Any method reaches the handler so non-POST requests get a 405 envelope.
	r.Any("/api", chain...)
	r.Any("/api/v1", chain...)
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.Metrics())
	r.Use(cors())
	return r
}

// cors allows the Mini App frontend served from another origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
