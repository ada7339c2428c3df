package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alex-user-go/tripquote/internal/currency"
	"github.com/alex-user-go/tripquote/internal/money"
)

type ratesResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// ratesHandler serves GET /rates?base=XXX from the built-in table.
func ratesHandler(logger *slog.Logger) http.HandlerFunc {
	table := currency.DefaultFallback()

	return func(w http.ResponseWriter, r *http.Request) {
		base := money.NormalizeCurrency(r.URL.Query().Get("base"))
		if base == "" {
			base = table.Base
		}

		codes := append([]string{table.Base}, mapKeys(table.Rates)...)
		resp := ratesResponse{Base: base, Rates: make(map[string]decimal.Decimal, len(codes))}
		for _, code := range codes {
			if rate, ok := table.Rate(base, code); ok {
				resp.Rates[code] = rate.Round(6)
			}
		}
		if len(resp.Rates) == 0 {
			http.Error(w, "unknown base currency", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}

func mapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
