package handler

import (
	"errors"
	"net/http"

	"github.com/alex-user-go/tripquote/internal/composition"
	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/middleware"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/pricing"
	"github.com/alex-user-go/tripquote/internal/quote"
	"github.com/alex-user-go/tripquote/internal/readiness"
	"github.com/alex-user-go/tripquote/internal/selection"
)

// PartitionRequest asks for a party to be split into groups.
type PartitionRequest struct {
	Adults    int             `json:"adults" validate:"gte=0"`
	Children  int             `json:"children" validate:"gte=0"`
	ChildAges []int           `json:"child_ages,omitempty" validate:"omitempty,dive,gte=0,lte=17"`
	Strategy  ledger.Strategy `json:"strategy" validate:"required,oneof=solo couple family group-auto"`
}

// PartitionResponse holds the proposed groups and whether they cover the party.
type PartitionResponse struct {
	UseSubgroups bool           `json:"use_subgroups"`
	Groups       []ledger.Group `json:"groups"`
	Valid        bool           `json:"valid"`
	Reason       string         `json:"reason,omitempty"`
}

// PartitionHandler handles /travelers/partition requests.
func (h *Handler) PartitionHandler(w http.ResponseWriter, r *http.Request) {
	var req PartitionRequest
	if err := h.decodeValid(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l := ledger.New(ledger.Party{Adults: req.Adults, Children: req.Children, ChildAges: req.ChildAges})
	if err := l.Split(req.Strategy); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	v := l.Validate()
	h.writeJSON(w, http.StatusOK, PartitionResponse{
		UseSubgroups: l.Subgrouping(),
		Groups:       l.Groups(),
		Valid:        v.Valid,
		Reason:       v.Reason,
	})
}

// SelectRequest binds an offer to a traveler group of a composition.
type SelectRequest struct {
	Payload  composition.Payload `json:"payload" validate:"-"`
	GroupID  string              `json:"group_id" validate:"required"`
	Offer    offers.Offer        `json:"offer" validate:"-"`
	Quantity int                 `json:"quantity,omitempty" validate:"gte=0"`
}

// QuoteResponse is a composition together with its current price and
// readiness.
type QuoteResponse struct {
	Payload   composition.Payload `json:"payload"`
	Breakdown pricing.Breakdown   `json:"breakdown"`
	Readiness readiness.Report    `json:"readiness"`
}

// SelectHandler handles /quotes/select requests. The offer price is converted
// into the preferred currency once, at selection time.
func (h *Handler) SelectHandler(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := h.decodeValid(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := composition.FromPayload(req.Payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if err := c.ChooseOffer(r.Context(), h.converter, req.GroupID, req.Offer, qty); err != nil {
		writeError(w, selectStatus(err), err.Error())
		return
	}

	middleware.Logger(r.Context()).Info("offer selected",
		"composition_id", c.ID(),
		"category", req.Offer.Category,
		"offer_id", req.Offer.ID,
		"group_id", req.GroupID,
	)
	h.writeQuote(w, http.StatusOK, c)
}

// BreakdownHandler handles /quotes/breakdown requests.
func (h *Handler) BreakdownHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeComposition(w, r)
	if !ok {
		return
	}
	h.writeQuote(w, http.StatusOK, c)
}

// SubmitResponse is the outcome of a submission attempt.
type SubmitResponse struct {
	Submitted bool                 `json:"submitted"`
	Payload   *composition.Payload `json:"payload,omitempty"`
	Readiness readiness.Report     `json:"readiness"`
}

// SubmitHandler handles /quotes/submit requests. An incomplete composition is
// answered with 422 and the blocking reasons.
func (h *Handler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeComposition(w, r)
	if !ok {
		return
	}

	payload, report, err := h.submitter.Submit(c)
	var incomplete *quote.IncompleteError
	switch {
	case errors.Is(err, quote.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &incomplete):
		h.writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{Readiness: report})
	case err != nil:
		middleware.Logger(r.Context()).Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "submit failed")
	default:
		h.writeJSON(w, http.StatusOK, SubmitResponse{Submitted: true, Payload: &payload, Readiness: report})
	}
}

func (h *Handler) decodeComposition(w http.ResponseWriter, r *http.Request) (*composition.Composition, bool) {
	var p composition.Payload
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	c, err := composition.FromPayload(p)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	return c, true
}

func (h *Handler) writeQuote(w http.ResponseWriter, status int, c *composition.Composition) {
	h.writeJSON(w, status, QuoteResponse{
		Payload:   c.Payload(),
		Breakdown: c.Breakdown(),
		Readiness: readiness.Check(c),
	})
}

func selectStatus(err error) int {
	switch {
	case errors.Is(err, composition.ErrFrozen), errors.Is(err, selection.ErrFrozen):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrGroupNotFound):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}
