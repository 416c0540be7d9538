package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"campusride-relay/internal/client"
	"campusride-relay/internal/metrics"
	"campusride-relay/internal/model"
	"campusride-relay/internal/service"
)

// RelayHandler exposes relay routes over HTTP.
type RelayHandler struct {
	service *service.RelayService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayHandler creates a RelayHandler. m may be nil.
func NewRelayHandler(svc *service.RelayService, logger *slog.Logger, m *metrics.Metrics) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
		metrics: m,
	}
}

// Handle returns the echo handler relaying requests for route.
func (h *RelayHandler) Handle(route model.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		var body []byte
		if route.Method != http.MethodGet && isJSON(req.Header.Get(echo.HeaderContentType)) {
			b, err := io.ReadAll(req.Body)
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return echo.NewHTTPError(http.StatusBadRequest, "unable to read request body")
			}
			if len(strings.TrimSpace(string(b))) > 0 && !json.Valid(b) {
				return echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
			}
			body = b
		}

		resp, err := h.service.Forward(&model.RelayRequest{
			Ctx:   req.Context(),
			Route: route,
			Body:  body,
		})
		if err != nil {
			return h.fail(c, route, err)
		}

		if len(resp.Body) == 0 {
			return c.NoContent(resp.StatusCode)
		}
		return c.JSONBlob(resp.StatusCode, resp.Body)
	}
}

// fail logs err and answers with the route's fixed failure message. The
// caller never learns which of the causes below occurred.
func (h *RelayHandler) fail(c echo.Context, route model.Route, err error) error {
	cause := failureCause(err)
	h.logger.Error("relay error",
		"err", err,
		"cause", cause,
		"path", route.Path,
		"upstream_path", route.UpstreamPath,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
	)
	if h.metrics != nil {
		h.metrics.RelayFailures.WithLabelValues(route.Path, cause).Inc()
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": route.FailureMessage,
	})
}

func failureCause(err error) string {
	if errors.Is(err, service.ErrNonJSONResponse) {
		return "non_json"
	}
	if errors.Is(err, client.ErrResponseTooLarge) {
		return "too_large"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	return "unreachable"
}

// isJSON reports whether a Content-Type names a JSON payload.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == echo.MIMEApplicationJSON || strings.HasSuffix(mt, "+json")
}
