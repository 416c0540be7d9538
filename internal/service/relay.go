// Package service implements the core relay forwarding logic.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"campusride-relay/internal/client"
	"campusride-relay/internal/config"
	"campusride-relay/internal/model"
)

// ErrNonJSONResponse is returned when the upstream answers with a body that is not valid JSON.
var ErrNonJSONResponse = errors.New("upstream response is not valid JSON")

// emptyBody is what a POST route forwards when the caller sent nothing.
var emptyBody = []byte("{}")

// RelayService forwards relay requests to the upstream service.
type RelayService struct {
	client        *client.UpstreamClient
	logger        *slog.Logger
	baseURL       *url.URL
	forwardStatus bool
}

// NewRelayService creates a RelayService.
func NewRelayService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*RelayService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &RelayService{
		client:        c,
		logger:        logger.With("component", "relay_service"),
		baseURL:       u,
		forwardStatus: cfg.Upstream.ForwardStatus,
	}, nil
}

// Forward sends rr to the route's upstream path and returns the upstream
// JSON body untouched. Unless status forwarding is enabled the returned
// status is always 200, whatever the upstream answered.
func (s *RelayService) Forward(rr *model.RelayRequest) (*model.RelayResponse, error) {
	target := s.buildUpstreamURL(rr.Route.UpstreamPath)

	var body io.Reader
	if rr.Route.Method != http.MethodGet {
		payload := rr.Body
		if len(bytes.TrimSpace(payload)) == 0 {
			payload = emptyBody
		}
		body = bytes.NewReader(payload)
	}

	s.logger.Debug("forwarding request",
		"method", rr.Route.Method,
		"path", rr.Route.Path,
		"upstream_path", rr.Route.UpstreamPath,
	)

	resp, err := s.client.Send(rr.Ctx, rr.Route.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	// With status forwarding a bodiless 204 is a valid answer in itself.
	if s.forwardStatus && resp.StatusCode == http.StatusNoContent && len(resp.Body) == 0 {
		return &model.RelayResponse{StatusCode: http.StatusNoContent}, nil
	}

	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("%s %s returned status %d: %w", rr.Route.Method, rr.Route.UpstreamPath, resp.StatusCode, ErrNonJSONResponse)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		s.logger.Warn("upstream returned error status",
			"path", rr.Route.Path,
			"status", resp.StatusCode,
		)
	}

	status := http.StatusOK
	if s.forwardStatus {
		status = resp.StatusCode
	}

	return &model.RelayResponse{
		StatusCode: status,
		Body:       resp.Body,
	}, nil
}

// UpstreamURL returns the configured upstream base URL.
func (s *RelayService) UpstreamURL() string {
	return s.baseURL.String()
}

func (s *RelayService) buildUpstreamURL(path string) string {
	u := *s.baseURL
	u.Path = u.Path + path
	u.RawQuery = ""
	return u.String()
}
