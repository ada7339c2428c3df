package obs_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alex-user-go/tripquote/internal/obs"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *obs.Metrics
	m.IncRequests()
	m.IncConversionsDegraded()

	if got := m.Snapshot(); got != (obs.MetricsSnapshot{}) {
		t.Errorf("expected zero snapshot, got %+v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := obs.NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.IncRequests()
	m.IncRequests()
	m.IncRateCacheHits()
	m.IncQuotesRejected()

	rec := httptest.NewRecorder()
	m.MetricsHandler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"requests_total 2\n",
		"rate_cache_hits_total 1\n",
		"quotes_rejected_total 1\n",
		"conversions_degraded_total 0\n",
		"# TYPE quotes_submitted_total counter\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	obs.HealthHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}
