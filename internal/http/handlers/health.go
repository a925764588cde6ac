package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkDisabled  = "disabled"
)

// probe pings one backend; a nil probe means the backend is not configured
type probe func(ctx context.Context) error

// HealthHandler serves liveness and readiness. Backends that are not
// configured report "disabled" and never fail readiness.
type HealthHandler struct {
	probes    map[string]probe
	startTime time.Time
	version   string
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, version string) *HealthHandler {
	h := &HealthHandler{
		probes:    map[string]probe{"database": nil, "redis": nil},
		startTime: time.Now(),
		version:   version,
	}
	if db != nil {
		h.probes["database"] = db.Ping
	}
	if rdb != nil {
		h.probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness only says the process is serving
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings every configured backend
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.run(ctx)

	status, code := checkHealthy, http.StatusOK
	if !healthy {
		status, code = checkUnhealthy, http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health is the short form used by load balancers
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if checks, healthy := h.run(ctx); !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": checkUnhealthy, "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func (h *HealthHandler) run(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.probes))
	healthy := true
	for name, p := range h.probes {
		switch {
		case p == nil:
			checks[name] = checkDisabled
		case p(ctx) != nil:
			checks[name] = checkUnhealthy
			healthy = false
		default:
			checks[name] = checkHealthy
		}
	}
	return checks, healthy
}
