package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Cimminelli1982/CRM/internal/version"
)

// StatusHandler serves liveness and build info endpoints.
type StatusHandler struct {
	logger *slog.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(log *slog.Logger) *StatusHandler {
	return &StatusHandler{logger: log.With(slog.String("handler", "status"))}
}

// Register mounts GET /ping, HEAD /health and GET /version.
func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.Health)
	e.GET("/version", h.Version)
}

// Ping returns 200 JSON {"status":"ok"}.
func (h *StatusHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health returns 200 No Content for load balancer checks.
func (h *StatusHandler) Health(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Version reports the running build.
func (h *StatusHandler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"version": version.GetInfo(),
	})
}
