package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is the part of the record store the probes need.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store     Pinger
	backend   string
	version   string
	startedAt time.Time
}

func NewHealthHandler(store Pinger, backend, version string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		backend:   backend,
		version:   version,
		startedAt: time.Now(),
	}
}

type readiness struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Backend string `json:"store_backend"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`
}

// Liveness only reports that the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings the record store within 5s.
func (h *HealthHandler) Readiness(c *gin.Context) {
	r := readiness{
		Status:  "ready",
		Store:   "healthy",
		Backend: h.backend,
		Version: h.version,
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
	}
	if err := h.ping(c, 5*time.Second); err != nil {
		r.Status, r.Store, r.Error = "not_ready", "unhealthy", err.Error()
		c.JSON(http.StatusServiceUnavailable, r)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Health is the short combined check used by load balancers.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.ping(c, 3*time.Second); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func (h *HealthHandler) ping(c *gin.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()
	return h.store.Ping(ctx)
}
