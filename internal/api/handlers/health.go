package handlers

import (
	"context"
	"net/http"
	"time"

	ws "notify-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	registry *ws.Registry
	checks   map[string]HealthCheck
}

func NewHealthHandler(registry *ws.Registry, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{registry: registry, checks: checks}
}

type HealthResponse struct {
	Status      string            `json:"status" example:"ok"`
	Checks      map[string]string `json:"checks"`
	Connections int               `json:"connections"`
	OnlineUsers int               `json:"online_users"`
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:      "ok",
		Checks:      make(map[string]string, len(h.checks)),
		Connections: h.registry.ConnectionCount(),
		OnlineUsers: len(h.registry.OnlineUsers()),
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
