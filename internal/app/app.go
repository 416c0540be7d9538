// Package app assembles a relay binary from its profile with fx.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"campusride-relay/internal/client"
	"campusride-relay/internal/config"
	"campusride-relay/internal/handler"
	"campusride-relay/internal/metrics"
	"campusride-relay/internal/middleware"
	"campusride-relay/internal/service"
)

// Module returns the fx options shared by every relay binary.
func Module(p config.Profile, cli *config.CLI, version string) fx.Option {
	return fx.Options(
		fx.Supply(p, cli, handler.Version(version)),
		fx.Provide(
			config.Load,
			NewLogger,
			NewMetrics,
			NewEcho,
			client.NewUpstreamClient,
			service.NewRelayService,
			handler.NewRelayHandler,
			handler.NewStatusHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, logUpstream, startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
	)
}

// NewLogger builds the process logger from the log config.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

// NewMetrics creates the metric set for the profile, namespaced by service name.
func NewMetrics(p config.Profile, cfg *config.Config) *metrics.Metrics {
	ns := strings.ReplaceAll(p.Name, "-", "_")
	paths := append(config.ReservedPaths(p), cfg.Metrics.Path)
	return metrics.New(ns, paths)
}

// NewEcho creates the HTTP server with the middleware stack installed.
func NewEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow clients. WriteTimeout must outlast
	// the upstream timeout or slow relays would be cut off mid-response.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second + 10*time.Second
	e.Server.IdleTimeout = 120 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func logUpstream(p config.Profile, cfg *config.Config, logger *slog.Logger) {
	logger.Info("using upstream",
		"service", p.Name,
		"upstream_url", cfg.Upstream.BaseURL,
		"fixed", p.Fixed,
		"forward_status", cfg.Upstream.ForwardStatus,
	)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("relay listening", "addr", ln.Addr().String())
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
