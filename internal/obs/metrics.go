package obs

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks application metrics using atomic counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests            atomic.Int64
	searchCacheHits     atomic.Int64
	providerErrors      atomic.Int64
	rateLookups         atomic.Int64
	rateCacheHits       atomic.Int64
	rateSourceErrors    atomic.Int64
	conversionsDegraded atomic.Int64
	quotesSubmitted     atomic.Int64
	quotesRejected      atomic.Int64
	logger              *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m != nil {
		m.requests.Add(1)
	}
}

// IncSearchCacheHits increments the offer search cache hits counter.
func (m *Metrics) IncSearchCacheHits() {
	if m != nil {
		m.searchCacheHits.Add(1)
	}
}

// IncProviderErrors increments the offer provider errors counter.
func (m *Metrics) IncProviderErrors() {
	if m != nil {
		m.providerErrors.Add(1)
	}
}

// IncRateLookups counts pair rate lookups, cached or not.
func (m *Metrics) IncRateLookups() {
	if m != nil {
		m.rateLookups.Add(1)
	}
}

// IncRateCacheHits counts pair rate lookups served from cache.
func (m *Metrics) IncRateCacheHits() {
	if m != nil {
		m.rateCacheHits.Add(1)
	}
}

// IncRateSourceErrors counts failed rate source calls.
func (m *Metrics) IncRateSourceErrors() {
	if m != nil {
		m.rateSourceErrors.Add(1)
	}
}

// IncConversionsDegraded counts conversions returned unconverted.
func (m *Metrics) IncConversionsDegraded() {
	if m != nil {
		m.conversionsDegraded.Add(1)
	}
}

// IncQuotesSubmitted counts compositions frozen into a quote payload.
func (m *Metrics) IncQuotesSubmitted() {
	if m != nil {
		m.quotesSubmitted.Add(1)
	}
}

// IncQuotesRejected counts submissions refused as incomplete.
func (m *Metrics) IncQuotesRejected() {
	if m != nil {
		m.quotesRejected.Add(1)
	}
}

// Snapshot returns current metric values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Requests:            m.requests.Load(),
		SearchCacheHits:     m.searchCacheHits.Load(),
		ProviderErrors:      m.providerErrors.Load(),
		RateLookups:         m.rateLookups.Load(),
		RateCacheHits:       m.rateCacheHits.Load(),
		RateSourceErrors:    m.rateSourceErrors.Load(),
		ConversionsDegraded: m.conversionsDegraded.Load(),
		QuotesSubmitted:     m.quotesSubmitted.Load(),
		QuotesRejected:      m.quotesRejected.Load(),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Requests            int64
	SearchCacheHits     int64
	ProviderErrors      int64
	RateLookups         int64
	RateCacheHits       int64
	RateSourceErrors    int64
	ConversionsDegraded int64
	QuotesSubmitted     int64
	QuotesRejected      int64
}

type counter struct {
	name  string
	help  string
	value int64
}

func (s MetricsSnapshot) counters() []counter {
	return []counter{
		{"requests_total", "Total number of requests", s.Requests},
		{"search_cache_hits_total", "Total number of offer search cache hits", s.SearchCacheHits},
		{"provider_errors_total", "Total number of offer provider errors", s.ProviderErrors},
		{"rate_lookups_total", "Total number of currency pair rate lookups", s.RateLookups},
		{"rate_cache_hits_total", "Total number of currency pair rate cache hits", s.RateCacheHits},
		{"rate_source_errors_total", "Total number of rate source failures", s.RateSourceErrors},
		{"conversions_degraded_total", "Total number of conversions returned unconverted", s.ConversionsDegraded},
		{"quotes_submitted_total", "Total number of submitted quotes", s.QuotesSubmitted},
		{"quotes_rejected_total", "Total number of rejected quote submissions", s.QuotesRejected},
	}
}

// HealthHandler returns a handler for /healthz requests.
func HealthHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health response", "error", err)
		}
	}
}

// MetricsHandler returns a handler for /metrics requests in Prometheus format.
func (m *Metrics) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := m.Snapshot()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)

		for _, c := range snapshot.counters() {
			if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.value); err != nil {
				m.logger.Error("failed to write metrics", "error", err)
				return
			}
		}
	}
}
