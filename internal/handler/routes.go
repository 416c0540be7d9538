package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusride-relay/internal/config"
	"campusride-relay/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, p config.Profile, cfg *config.Config, relay *RelayHandler, status *StatusHandler, m *metrics.Metrics) {
	e.GET("/", status.Root)
	e.GET("/healthz", status.Healthz)
	e.GET("/relay/status", status.Status)

	for _, route := range p.Routes {
		e.Add(route.Method, route.Path, relay.Handle(route))
	}

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
