package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"campusride-relay/internal/config"
	"campusride-relay/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// StatusHandler serves the root banner plus health and status endpoints.
type StatusHandler struct {
	profile config.Profile
	relay   *service.RelayService
	version Version
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(p config.Profile, relay *service.RelayService, v Version) *StatusHandler {
	return &StatusHandler{profile: p, relay: relay, version: v}
}

// Root answers GET / with the service's fixed banner.
func (h *StatusHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		h.profile.RootKey: h.profile.RootMessage,
	})
}

// Healthz returns a simple OK response for liveness probes.
func (h *StatusHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns relay status information.
func (h *StatusHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      h.profile.Name,
		"version":      string(h.version),
		"upstream_url": h.relay.UpstreamURL(),
		"routes":       len(h.profile.Routes),
	})
}
