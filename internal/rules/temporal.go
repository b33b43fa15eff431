package rules

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
)

// TemporalRule rejects transactions dated after today. Only calendar dates
// are compared; the time of day is ignored.
type TemporalRule struct {
	Now func() time.Time
}

func (TemporalRule) Name() string { return "temporal" }

func (r TemporalRule) Evaluate(_ context.Context, rc Context) (Outcome, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	today := core.DateOnly(now())
	date := core.DateOnly(rc.Date)
	if date.After(today) {
		return Failure(fmt.Sprintf("transaction date %s is in the future", date.Format(time.DateOnly))), nil
	}
	return Success(), nil
}
