package systemhttp

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devmob/onboard/internal/port/inbound"
	"github.com/devmob/onboard/internal/port/outbound"
	"github.com/devmob/onboard/internal/shared/logger"
)

// Check is a named readiness probe.
type Check func(ctx context.Context) error

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status           string          `json:"status"`
	BotConnected     bool            `json:"bot_connected"`
	BotName          string          `json:"bot_name"`
	GuildsCount      int             `json:"guilds_count"`
	ActiveInterviews int             `json:"active_interviews"`
	Configuration    map[string]bool `json:"configuration"`
}

// ReadyResponse is the GET /ready payload.
type ReadyResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Handler serves liveness and readiness.
type Handler struct {
	directory outbound.DirectoryPort
	status    inbound.StatusPort
	checks    map[string]Check
}

// Compile-time check
var _ inbound.SystemHttpPort = (*Handler)(nil)

// NewHandler creates a new system handler.
func NewHandler(directory outbound.DirectoryPort, status inbound.StatusPort, checks map[string]Check) *Handler {
	return &Handler{directory: directory, status: status, checks: checks}
}

// RegisterRoutes registers system routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

// Health reports process and gateway state. It always answers 200.
//
//	@Summary		Health
//	@Description	Process state, gateway connection, guild count and which settings are present
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:           "running",
		BotName:          "Unknown",
		ActiveInterviews: h.status.ActiveInterviews(),
		Configuration:    h.status.Configured(),
	}
	if h.directory != nil {
		resp.BotConnected = h.directory.Connected()
		if name := h.directory.BotName(); name != "" {
			resp.BotName = name
		}
		if guilds, err := h.directory.Guilds(c.Request.Context()); err == nil {
			resp.GuildsCount = len(guilds)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// StatusDisconnected is the readiness result for a gateway without a live session.
const StatusDisconnected = "disconnected"

// Ready answers 200 when the gateway is connected and every check passes.
//
//	@Summary		Readiness
//	@Description	Gateway connection plus storage and redis checks
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	ReadyResponse
//	@Failure		503	{object}	ReadyResponse	"A check failed"
//	@Router			/ready [get]
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks)+1)
	ready := true

	if h.directory == nil || !h.directory.Connected() {
		results["discord"] = StatusDisconnected
		ready = false
	} else {
		results["discord"] = "ok"
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.FromContext(c.Request.Context()).Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ReadyResponse{Ready: ready, Checks: results})
}
