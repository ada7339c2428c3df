package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// offer is the wire form of a provider offer.
type offer struct {
	OfferID     string          `json:"offer_id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Currency    string          `json:"currency"`
	Price       decimal.Decimal `json:"price"`
}

// template is a catalog entry priced within [min, max].
type template struct {
	id, name string
	min, max float64
}

// profile describes how one mock provider behaves.
type profile struct {
	name        string
	currency    string
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
	catalog     map[string][]template
}

var profiles = map[string]profile{
	"mock1": {
		name:        "provider1",
		currency:    "EUR",
		minLatency:  50 * time.Millisecond,
		maxLatency:  200 * time.Millisecond,
		failureRate: 0.1,
		catalog: map[string][]template{
			"flights": {
				{"F001", "Morning direct", 120, 220},
				{"F002", "Evening one stop", 80, 160},
			},
			"hotels": {
				{"H001", "Grand Hotel", 100, 200},
				{"H002", "City Center Inn", 80, 150},
				{"H003", "Budget Stay", 50, 100},
			},
			"transfers": {
				{"T001", "Private sedan", 40, 70},
			},
			"events": {
				{"E001", "Old town walking tour", 15, 30},
				{"E002", "Opera night", 60, 140},
			},
		},
	},
	"mock2": {
		name:        "provider2",
		currency:    "usd",
		minLatency:  75 * time.Millisecond,
		maxLatency:  300 * time.Millisecond,
		failureRate: 0.15,
		catalog: map[string][]template{
			"flights": {
				{"F001", "Morning direct", 130, 240},
				{"F003", "Red-eye", 60, 110},
			},
			"hotels": {
				{"H001", "Grand Hotel", 110, 210},
				{"H005", "Seaside Resort", 150, 300},
			},
			"transfers": {
				{"T002", "Shared shuttle", 10, 25},
				{"T003", "Minivan", 60, 95},
			},
			"events": {
				{"E002", "Opera night", 70, 150},
			},
		},
	},
	"mock3": {
		name:        "provider3",
		currency:    "GBP",
		minLatency:  60 * time.Millisecond,
		maxLatency:  240 * time.Millisecond,
		failureRate: 0.1,
		catalog: map[string][]template{
			"hotels": {
				{"H006", "Mountain Lodge", 90, 180},
				{"H003", "Budget Stay", 40, 90},
			},
			"events": {
				{"E003", "Food market tasting", 25, 45},
			},
		},
	},
}

// Mock serves /search for every category with random latency and failures.
type Mock struct {
	profile profile
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMock creates a mock for p.
func NewMock(p profile, logger *slog.Logger) *Mock {
	return &Mock{
		profile: p,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Mock) float64() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// search simulates a lookup with random latency and potential failures.
func (m *Mock) search(ctx context.Context, category, city string) ([]offer, error) {
	span := m.profile.maxLatency - m.profile.minLatency
	latency := m.profile.minLatency + time.Duration(m.float64()*float64(span))

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}

	if m.float64() < m.profile.failureRate {
		return nil, errProviderUnavailable
	}

	city = strings.TrimSpace(city)
	templates := m.profile.catalog[category]
	out := make([]offer, 0, len(templates))
	for _, t := range templates {
		o := offer{
			OfferID:  t.id,
			Category: category,
			Name:     t.name,
			Currency: m.profile.currency,
			Price:    m.randomPrice(t.min, t.max),
		}
		if city != "" {
			o.Description = t.name + " in " + city
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *Mock) randomPrice(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(lo + m.float64()*(hi-lo)).Round(2)
}

// ServeHTTP handles HTTP requests for this provider.
func (m *Mock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	category := strings.ToLower(strings.TrimSpace(query.Get("category")))
	if _, ok := profiles["mock1"].catalog[category]; !ok {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	adults, err := strconv.Atoi(query.Get("adults"))
	if err != nil || adults <= 0 {
		http.Error(w, "invalid adults", http.StatusBadRequest)
		return
	}

	found, err := m.search(r.Context(), category, query.Get("city"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(found); err != nil {
		m.logger.Error("failed to encode response", "error", err)
	}
}
