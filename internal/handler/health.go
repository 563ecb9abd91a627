package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by the visit record store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store     Pinger
	redis     *redis.Client
	startTime time.Time
	version   string
}

// NewHealthHandler constructs a HealthHandler. redisClient may be nil when
// the attempt limiter is disabled.
func NewHealthHandler(store Pinger, redisClient *redis.Client, version string) *HealthHandler {
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{store: store, redis: redisClient, startTime: time.Now(), version: version}
}

// Check is the state of one dependency.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by both probes.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Health handles GET /health
// Liveness only: confirms the process is serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response("UP", map[string]Check{"process": {Status: "UP"}}))
}

// Ready handles GET /ready
// Checks the store and, when configured, Redis.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]Check{"store": h.checkStore(ctx)}
	if h.redis != nil {
		checks["redis"] = h.checkRedis(ctx)
	}

	status, code := "UP", http.StatusOK
	for _, c := range checks {
		if c.Status != "UP" {
			status, code = "DOWN", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, h.response(status, checks))
}

func (h *HealthHandler) response(status string, checks map[string]Check) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}
}

func (h *HealthHandler) checkStore(ctx context.Context) Check {
	if h.store == nil {
		return Check{Status: "DOWN", Message: "store is not initialized"}
	}
	if err := h.store.Ping(ctx); err != nil {
		return Check{Status: "DOWN", Message: "cannot reach store"}
	}
	return Check{Status: "UP"}
}

func (h *HealthHandler) checkRedis(ctx context.Context) Check {
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return Check{Status: "DOWN", Message: "cannot reach redis"}
	}
	return Check{Status: "UP"}
}
