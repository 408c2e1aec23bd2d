package recurring

import (
	"github.com/centsible/backend/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DeleteTemplate deletes a template and every expense materialized from
// it, returning the number of deleted expenses.
//
// The two steps are not atomic: a crash in between leaves the template
// in place with some expenses gone, and the next deletion attempt
// finishes the job. Expenses are deleted first so that a partial run
// can never leave a template-less expense pointing at a live template.
func (e *Engine) DeleteTemplate(userID, templateID uuid.UUID) (int, error) {
	var template models.Template
	err := models.DB.
		Where("templates.user_id = ?", userID).
		First(&template, "templates.id = ?", templateID).Error
	if err != nil {
		return 0, err
	}

	res := models.DB.
		Where("expenses.user_id = ? AND expenses.template_id = ?", userID, templateID).
		Delete(&models.Expense{})
	if res.Error != nil {
		return 0, res.Error
	}

	err = models.DB.Delete(&template).Error
	if err != nil {
		return int(res.RowsAffected), err
	}

	log.Info().
		Str("user", userID.String()).
		Str("template", templateID.String()).
		Int64("expenses", res.RowsAffected).
		Msg("deleted template and derived expenses")

	return int(res.RowsAffected), nil
}

// DeleteInstance deletes a single expense. With carryForward set, it
// also deletes every expense reachable through carried-forward
// references rooted at it that is due later, so removing the original
// of a correction chain removes the corrections with it.
//
// The count returned includes the expense itself.
func (e *Engine) DeleteInstance(userID, instanceID uuid.UUID, carryForward bool) (int, error) {
	var expense models.Expense
	err := models.DB.
		Where("expenses.user_id = ?", userID).
		First(&expense, "expenses.id = ?", instanceID).Error
	if err != nil {
		return 0, err
	}

	err = models.DB.Delete(&expense).Error
	if err != nil {
		return 0, err
	}

	deleted := 1
	if !carryForward {
		return deleted, nil
	}

	// Walk the chain breadth-first. Cycles cannot happen through
	// creation order, but the visited set keeps bad data from looping.
	frontier := []uuid.UUID{expense.ID}
	visited := map[uuid.UUID]struct{}{expense.ID: {}}

	for len(frontier) > 0 {
		var next []models.Expense
		err := models.DB.
			Where("expenses.user_id = ? AND expenses.carried_forward_from IN ? AND expenses.due_date > ?", userID, frontier, expense.DueDate).
			Find(&next).Error
		if err != nil {
			return deleted, err
		}

		frontier = frontier[:0]
		for _, carried := range next {
			if _, ok := visited[carried.ID]; ok {
				continue
			}
			visited[carried.ID] = struct{}{}

			err := models.DB.Delete(&carried).Error
			if err != nil {
				return deleted, err
			}

			deleted++
			frontier = append(frontier, carried.ID)
		}
	}

	return deleted, nil
}
