package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alex-user-go/tripquote/internal/money"
)

// ConvertResponse is a single conversion snapshot.
type ConvertResponse struct {
	money.ConvertedMoney
	EffectiveRate *decimal.Decimal `json:"effective_rate,omitempty"`
}

// ConvertHandler handles /convert requests. The optional spread overrides the
// configured one for this call only.
func (h *Handler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	amount, err := decimal.NewFromString(strings.TrimSpace(query.Get("amount")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal number")
		return
	}
	from := money.NormalizeCurrency(query.Get("from"))
	to := money.NormalizeCurrency(query.Get("to"))
	if err := h.validate.Var(from, "required,iso4217"); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("from must be an ISO 4217 code, got %q", from))
		return
	}
	if err := h.validate.Var(to, "required,iso4217"); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("to must be an ISO 4217 code, got %q", to))
		return
	}

	m := money.New(amount, from)
	var converted money.ConvertedMoney
	if raw := query.Get("spread"); raw != "" {
		spread, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "spread must be a decimal number")
			return
		}
		converted = h.converter.ConvertWithSpread(r.Context(), m, to, spread)
	} else {
		converted = h.converter.Convert(r.Context(), m, to)
	}

	resp := ConvertResponse{ConvertedMoney: converted}
	if !converted.Unconverted && !converted.OriginalAmount.IsZero() {
		rate := converted.Amount.DivRound(converted.OriginalAmount, 6)
		resp.EffectiveRate = &rate
	}
	h.writeJSON(w, http.StatusOK, resp)
}
