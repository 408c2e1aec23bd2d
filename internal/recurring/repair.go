package recurring

import (
	"strings"

	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RepairDuplicates collapses months that hold more than one expense for
// the template down to a single one. It exists because the engine's
// check-then-insert sequence was not always guarded by the key index,
// so historical data can contain duplicates.
//
// The survivor in each month is the expense created first, with the
// lowest ID breaking ties. That makes repair deterministic and
// idempotent: running it again deletes nothing.
func (e *Engine) RepairDuplicates(userID, templateID uuid.UUID) (int, error) {
	expenses, err := models.ExpensesByTemplate(models.DB, userID, templateID)
	if err != nil {
		return 0, err
	}

	byMonth := make(map[types.Month][]models.Expense)
	for _, expense := range expenses {
		month := types.MonthOf(expense.DueDate)
		byMonth[month] = append(byMonth[month], expense)
	}

	deleted := 0
	for month, group := range byMonth {
		if len(group) < 2 {
			continue
		}

		survivor := group[0]
		for _, candidate := range group[1:] {
			if candidate.CreatedAt.Before(survivor.CreatedAt) ||
				(candidate.CreatedAt.Equal(survivor.CreatedAt) &&
					strings.Compare(candidate.ID.String(), survivor.ID.String()) < 0) {
				survivor = candidate
			}
		}

		log.Warn().
			Str("user", userID.String()).
			Str("template", templateID.String()).
			Str("month", month.String()).
			Int("duplicates", len(group)-1).
			Msg("repairing duplicate expenses")

		for _, expense := range group {
			if expense.ID == survivor.ID {
				continue
			}

			err := models.DB.Delete(&expense).Error
			if err != nil {
				return deleted, err
			}
			deleted++
		}
	}

	return deleted, nil
}
