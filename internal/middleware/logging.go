// Package middleware provides Echo middleware for logging, metrics, CORS and security.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Server errors log at warn so they stand out next to the relay error line.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let echo render the error first so the logged status is final.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			level := slog.LevelInfo
			if res.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			logger.LogAttrs(req.Context(), level, "request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				slog.String("remote_ip", c.RealIP()),
				slog.Int64("bytes_in", req.ContentLength),
				slog.Int64("bytes_out", res.Size),
			)

			return nil
		}
	}
}
