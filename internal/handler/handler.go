// Package handler exposes the quote engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/alex-user-go/tripquote/internal/cache"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/obs"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/offers/search"
	"github.com/alex-user-go/tripquote/internal/quote"
	"github.com/alex-user-go/tripquote/internal/ratelimit"
	"github.com/alex-user-go/tripquote/internal/validation"
)

const maxBodyBytes = 1 << 20

// Searcher runs an offer search across providers.
type Searcher interface {
	Search(ctx context.Context, q offers.Query) (*search.Result, error)
}

// Converter converts money for the convert endpoint and offer selection.
type Converter interface {
	Convert(ctx context.Context, m money.Money, to string) money.ConvertedMoney
	ConvertWithSpread(ctx context.Context, m money.Money, to string, spread decimal.Decimal) money.ConvertedMoney
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Searcher    Searcher
	SearchCache *cache.Cache[*search.Result]
	RateLimiter *ratelimit.Limiter
	Converter   Converter
	Submitter   *quote.Submitter
	Metrics     *obs.Metrics
	Logger      *slog.Logger
}

// Handler handles HTTP requests.
type Handler struct {
	searcher    Searcher
	cache       *cache.Cache[*search.Result]
	rateLimiter *ratelimit.Limiter
	converter   Converter
	submitter   *quote.Submitter
	metrics     *obs.Metrics
	logger      *slog.Logger
	validate    *validator.Validate
}

// New creates a new Handler.
func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	submitter := d.Submitter
	if submitter == nil {
		submitter = quote.NewSubmitter(d.Metrics, logger)
	}
	return &Handler{
		searcher:    d.Searcher,
		cache:       d.SearchCache,
		rateLimiter: d.RateLimiter,
		converter:   d.Converter,
		submitter:   submitter,
		metrics:     d.Metrics,
		logger:      logger,
		validate:    validation.Validator(),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /offers/search", h.SearchHandler)
	mux.HandleFunc("GET /convert", h.ConvertHandler)
	mux.HandleFunc("POST /travelers/partition", h.PartitionHandler)
	mux.HandleFunc("POST /quotes/select", h.SelectHandler)
	mux.HandleFunc("POST /quotes/breakdown", h.BreakdownHandler)
	mux.HandleFunc("POST /quotes/submit", h.SubmitHandler)
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeValid reads a JSON body into dst and checks its validate tags.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return h.validateStruct(dst)
}

func (h *Handler) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ExtractIP extracts the client IP from the request.
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Can't change status after WriteHeader, just log
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
