package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alex-user-go/tripquote/internal/middleware"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/offers/search"
)

// SearchResponse represents the response for offer search.
type SearchResponse struct {
	Search SearchInfo     `json:"search"`
	Stats  SearchStats    `json:"stats"`
	Offers []offers.Offer `json:"offers"`
}

// SearchInfo echoes the normalized query.
type SearchInfo struct {
	Category    offers.Category `json:"category"`
	City        string          `json:"city,omitempty"`
	Origin      string          `json:"origin,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Checkin     string          `json:"checkin,omitempty"`
	Nights      int             `json:"nights,omitempty"`
	Adults      int             `json:"adults"`
	Children    int             `json:"children,omitempty"`
}

// SearchStats contains search statistics.
type SearchStats struct {
	ProvidersTotal     int    `json:"providers_total"`
	ProvidersSucceeded int    `json:"providers_succeeded"`
	ProvidersFailed    int    `json:"providers_failed"`
	Cache              string `json:"cache"`
	DurationMs         int64  `json:"duration_ms"`
}

// SearchHandler handles /offers/search requests.
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	logger := middleware.Logger(r.Context())

	ip := ExtractIP(r)
	if h.rateLimiter != nil {
		d := h.rateLimiter.Allow(ip)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.rateLimiter.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			logger.Warn("rate limit exceeded", "ip", ip)
			w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Round(time.Second).Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	q, err := ParseSearchParams(r)
	if err != nil {
		logger.Debug("invalid request parameters", "error", err, "ip", ip)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetch := func() (*search.Result, error) {
		return h.searcher.Search(r.Context(), q)
	}
	var (
		result   *search.Result
		cacheHit bool
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrFetch(r.Context(), q.Key(), fetch)
	} else {
		result, err = fetch()
	}
	if err != nil {
		logger.Error("search failed",
			"error", err,
			"category", q.Category,
			"city", q.City,
			"checkin", q.Checkin,
			"ip", ip,
		)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.IncSearchCacheHits()
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Search: SearchInfo{
			Category:    q.Category,
			City:        q.City,
			Origin:      q.Origin,
			Destination: q.Destination,
			Checkin:     q.Checkin,
			Nights:      q.Nights,
			Adults:      q.Adults,
			Children:    q.Children,
		},
		Stats: SearchStats{
			ProvidersTotal:     result.ProvidersTotal,
			ProvidersSucceeded: result.ProvidersSucceeded,
			ProvidersFailed:    result.ProvidersFailed,
			Cache:              cacheStatus,
			DurationMs:         time.Since(startTime).Milliseconds(),
		},
		Offers: result.Offers,
	})
}

// ParseSearchParams parses and validates search parameters from the request.
// Which fields are required depends on the category.
func ParseSearchParams(r *http.Request) (offers.Query, error) {
	query := r.URL.Query()

	raw := query.Get("category")
	if strings.TrimSpace(raw) == "" {
		return offers.Query{}, fmt.Errorf("category is required")
	}
	category, err := offers.ParseCategory(raw)
	if err != nil {
		return offers.Query{}, err
	}

	q := offers.Query{
		Category:    category,
		City:        strings.TrimSpace(query.Get("city")),
		Origin:      strings.ToUpper(strings.TrimSpace(query.Get("origin"))),
		Destination: strings.ToUpper(strings.TrimSpace(query.Get("destination"))),
		Checkin:     strings.TrimSpace(query.Get("checkin")),
	}

	if q.Checkin != "" {
		if _, err := time.Parse(time.DateOnly, q.Checkin); err != nil {
			return offers.Query{}, fmt.Errorf("checkin must be in YYYY-MM-DD format")
		}
	}

	if q.Nights, err = intParam(query.Get("nights"), "nights"); err != nil {
		return offers.Query{}, err
	}

	adults := query.Get("adults")
	if adults == "" {
		return offers.Query{}, fmt.Errorf("adults is required")
	}
	if q.Adults, err = intParam(adults, "adults"); err != nil {
		return offers.Query{}, err
	}
	if q.Children, err = intParam(query.Get("children"), "children"); err != nil {
		return offers.Query{}, err
	}

	if err := q.Validate(); err != nil {
		return offers.Query{}, err
	}
	return q, nil
}

// intParam parses an optional non-negative integer. Empty means zero.
func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
