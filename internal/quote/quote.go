// Package quote finalizes compositions for the downstream quote-creation
// service.
package quote

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/alex-user-go/tripquote/internal/composition"
	"github.com/alex-user-go/tripquote/internal/obs"
	"github.com/alex-user-go/tripquote/internal/readiness"
)

// ErrAlreadySubmitted is returned for a composition that is already frozen.
var ErrAlreadySubmitted = errors.New("composition already submitted")

// IncompleteError lists what keeps a composition from being submitted.
type IncompleteError struct {
	Reasons []string
}

func (e *IncompleteError) Error() string {
	return "composition incomplete: " + strings.Join(e.Reasons, "; ")
}

// Submitter freezes ready compositions.
type Submitter struct {
	metrics *obs.Metrics
	logger  *slog.Logger
}

// NewSubmitter creates a Submitter. metrics may be nil.
func NewSubmitter(metrics *obs.Metrics, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{metrics: metrics, logger: logger}
}

// Submit checks c and, when it is ready, freezes it and returns the final
// payload with its breakdown. An incomplete composition is left untouched.
func (s *Submitter) Submit(c *composition.Composition) (composition.Payload, readiness.Report, error) {
	if c.Frozen() {
		return composition.Payload{}, readiness.Report{}, ErrAlreadySubmitted
	}

	report := readiness.Check(c)
	if !report.Ready {
		s.metrics.IncQuotesRejected()
		s.logger.Info("quote rejected", "composition_id", c.ID(), "reasons", len(report.Reasons))
		return composition.Payload{}, report, &IncompleteError{Reasons: report.Reasons}
	}

	c.Freeze()
	payload := c.Payload()

	s.metrics.IncQuotesSubmitted()
	s.logger.Info("quote submitted",
		"composition_id", c.ID(),
		"total", payload.Breakdown.Total.Amount.StringFixed(2),
		"currency", payload.Breakdown.Currency,
		"warnings", len(report.Warnings),
	)

	return payload, report, nil
}
