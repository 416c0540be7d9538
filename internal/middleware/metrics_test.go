package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	dto "github.com/prometheus/client_model/go"

	"campusride-relay/internal/metrics"
)

// requestLabels gathers relay_http_requests_total and returns the label sets with their counts.
func requestLabels(t *testing.T, m *metrics.Metrics) []map[string]string {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var out []map[string]string
	for _, f := range families {
		if f.GetName() != "relay_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			out = append(out, labelMap(metric))
		}
	}
	return out
}

func labelMap(metric *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

func TestMetricsMiddleware_IncrementsCounter(t *testing.T) {
	m := metrics.New("relay", []string{"/groups"})

	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/groups", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/groups", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	for _, labels := range requestLabels(t, m) {
		if labels["path"] == "/groups" && labels["status_code"] == "200" && labels["method"] == "GET" {
			return
		}
	}
	t.Error("expected relay_http_requests_total with path=/groups, status_code=200")
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	m := metrics.New("relay", nil)

	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	e.ServeHTTP(httptest.NewRecorder(), req)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	for _, f := range families {
		if f.GetName() == "relay_http_request_duration_seconds" {
			for _, metric := range f.GetMetric() {
				if metric.GetHistogram().GetSampleCount() > 0 {
					return
				}
			}
		}
	}
	t.Error("expected relay_http_request_duration_seconds with at least one sample")
}

func TestMetricsMiddleware_HTTPErrorStatus(t *testing.T) {
	m := metrics.New("relay", []string{"/recommend"})

	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.POST("/recommend", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is not valid JSON")
	})

	req := httptest.NewRequest(http.MethodPost, "/recommend", http.NoBody)
	e.ServeHTTP(httptest.NewRecorder(), req)

	for _, labels := range requestLabels(t, m) {
		if labels["path"] == "/recommend" {
			if labels["status_code"] != "400" {
				t.Errorf("status_code = %q, want %q", labels["status_code"], "400")
			}
			return
		}
	}
	t.Error("expected relay_http_requests_total with path=/recommend")
}

func TestMetricsMiddleware_LabelsByRouteTemplate(t *testing.T) {
	m := metrics.New("relay", []string{"/groups/:id"})

	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/groups/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("id"))
	})

	for _, target := range []string{"/groups/42", "/groups/43?debug=1"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, http.NoBody))
	}

	labels := requestLabels(t, m)
	if len(labels) != 1 {
		t.Fatalf("got %d label sets, want 1: %v", len(labels), labels)
	}
	if labels[0]["path"] != "/groups/:id" {
		t.Errorf("path = %q, want %q", labels[0]["path"], "/groups/:id")
	}
}

func TestMetricsMiddleware_RouterNotFound(t *testing.T) {
	m := metrics.New("relay", nil)

	e := echo.New()
	e.Use(MetricsMiddleware(m))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	for _, labels := range requestLabels(t, m) {
		if labels["path"] == "other" && labels["method"] == "GET" {
			if labels["status_code"] != "404" {
				t.Errorf("status_code = %q, want %q", labels["status_code"], "404")
			}
			return
		}
	}
	t.Error("expected relay_http_requests_total with path=other, method=GET, status_code=404")
}
