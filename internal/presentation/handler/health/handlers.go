package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hilthontt/roomsync/internal/infrastructure/json"
)

// Check reports whether one backing service is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	startTime time.Time
	healthy   atomic.Bool
	checks    map[string]Check
	timeout   time.Duration
}

func NewHandler(checks map[string]Check) *Handler {
	h := &Handler{
		startTime: time.Now(),
		checks:    checks,
		timeout:   2 * time.Second,
	}
	h.healthy.Store(true)
	return h
}

// SetHealthy flips liveness, e.g. to drain the instance before shutdown.
func (h *Handler) SetHealthy(ok bool) { h.healthy.Store(ok) }

func (h *Handler) response(status string) healthResponse {
	return healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, including uptime and current timestamp
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if !h.healthy.Load() {
		json.Write(w, http.StatusServiceUnavailable, h.response("unhealthy"))
		return
	}
	json.Write(w, http.StatusOK, h.response("ok"))
}

// GetReady godoc
// @Summary      Readiness check
// @Description  Pings every configured backing service (message store, rate limit cache, broker)
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "All dependencies reachable"
// @Failure      503 {object} healthResponse "A dependency is unreachable"
// @Router       /ready [get]
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	if !h.healthy.Load() {
		json.Write(w, http.StatusServiceUnavailable, h.response("unhealthy"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := h.response("ok")
	status := http.StatusOK
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	json.Write(w, status, resp)
}
