package ratesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/alex-user-go/tripquote/internal/money"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("rate source unavailable")

// Settings tune the circuit breaker around the HTTP calls.
type Settings struct {
	Timeout             time.Duration
	ConsecutiveFailures uint32
	OpenFor             time.Duration
}

// DefaultSettings trips after three consecutive failures and probes again after 30s.
func DefaultSettings() Settings {
	return Settings{
		Timeout:             2 * time.Second,
		ConsecutiveFailures: 3,
		OpenFor:             30 * time.Second,
	}
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// HTTPSource fetches rate tables from GET {baseURL}/rates?base=XXX.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(baseURL string, settings Settings, logger *slog.Logger) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: settings.Timeout,
		},
		logger: logger,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rate-source",
		MaxRequests: 1,
		Timeout:     settings.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return s
}

// Open reports whether the breaker currently rejects calls.
func (s *HTTPSource) Open() bool {
	return s.breaker.State() == gobreaker.StateOpen
}

// Rates returns the rate table for base.
func (s *HTTPSource) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	base = money.NormalizeCurrency(base)

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, base)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}

	return result.(map[string]decimal.Decimal), nil
}

func (s *HTTPSource) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	u, err := url.Parse(s.baseURL + "/rates")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rate source returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if got := money.NormalizeCurrency(payload.Base); got != "" && got != base {
		return nil, fmt.Errorf("rate source answered for base %s, asked %s", got, base)
	}

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, rate := range payload.Rates {
		rates[money.NormalizeCurrency(code)] = rate
	}

	return rates, nil
}
