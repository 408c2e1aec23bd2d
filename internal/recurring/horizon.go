package recurring

import (
	"fmt"
	"time"

	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
)

// forwardMonths caps how far into the future expenses are materialized
// for open-ended templates. The horizon is recomputed relative to "now"
// on every run, so the window rolls forward as time passes.
const forwardMonths = 12

// Horizon returns the ordered, deduplicated months for which expenses
// should exist for a template: from the template's start month through
// min(end month, current month + forwardMonths), both inclusive.
//
// The result is empty when the start month is after the effective upper
// bound. The engine never backfills before the start month.
func Horizon(start time.Time, end *time.Time, now time.Time) []types.Month {
	lower := types.MonthOf(start.In(time.UTC))
	upper := types.MonthOf(now.In(time.UTC)).AddDate(0, forwardMonths)

	if end != nil {
		if endMonth := types.MonthOf(end.In(time.UTC)); endMonth.Before(upper) {
			upper = endMonth
		}
	}

	if lower.After(upper) {
		return nil
	}

	var months []types.Month
	for m := lower; !m.After(upper); m = m.AddDate(0, 1) {
		months = append(months, m)
	}

	return months
}

// MaterializationKey returns the idempotency token for one occurrence of
// a template, e.g. "3f1f9e7e-…-1f0a-2024-03". It depends only on the
// template and the month, never on the resolved due date, so clamping
// differences cannot create drift between runs.
func MaterializationKey(templateID uuid.UUID, month types.Month) string {
	return fmt.Sprintf("%s-%s", templateID, month)
}
