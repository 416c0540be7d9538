package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/groups", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/groups", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "path=/groups") || !strings.Contains(out, "status=200") {
		t.Errorf("unexpected log line: %q", out)
	}
}

func TestRequestLogger_HTTPErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.POST("/recommend", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	})

	req := httptest.NewRequest(http.MethodPost, "/recommend", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(buf.String(), "status=400") {
		t.Errorf("expected logged status=400, got %q", buf.String())
	}
}

func TestRequestLogger_ServerErrorAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/groups", func(c echo.Context) error {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch groups"})
	})

	req := httptest.NewRequest(http.MethodGet, "/groups", http.NoBody)
	e.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected WARN level for 500, got %q", buf.String())
	}
}
