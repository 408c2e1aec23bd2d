// Package recurring implements the materialization engine that turns
// recurring expense templates into concrete, dated expenses.
package recurring

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/centsible/backend/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// materializeConcurrency bounds the number of templates processed at the
// same time within one run.
const materializeConcurrency = 4

// Engine materializes expenses from templates. All methods are safe for
// concurrent use.
type Engine struct {
	// Now returns the current time. It is a field so tests can pin it.
	Now func() time.Time

	mu      sync.Mutex
	running map[uuid.UUID]struct{}
}

// NewEngine returns an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{
		Now:     time.Now,
		running: make(map[uuid.UUID]struct{}),
	}
}

// Result reports the outcome of one materialization run.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	// Errors lists the templates that could not be processed. The run
	// continues past them, one bad template never aborts the batch.
	Errors []uuid.UUID `json:"errors"`
}

// Materialize creates all missing expenses for the user's active
// templates within each template's horizon.
//
// Calling it again with the same clock is a no-op: every occurrence is
// identified by its materialization key, and the unique index on that
// key rejects duplicate writes even when two runs race across processes.
// An overlapping run for the same user in this process returns an empty
// Result immediately without re-entering the algorithm.
func (e *Engine) Materialize(userID uuid.UUID) (Result, error) {
	if !e.tryAcquire(userID) {
		log.Debug().Str("user", userID.String()).Msg("materialization already in progress, skipping")
		return Result{}, nil
	}
	defer e.release(userID)

	templates, err := models.ActiveTemplates(models.DB, userID)
	if err != nil {
		return Result{}, err
	}

	now := e.Now().In(time.UTC)

	var (
		mu     sync.Mutex
		result Result
	)

	g := new(errgroup.Group)
	g.SetLimit(materializeConcurrency)

	for _, template := range templates {
		g.Go(func() error {
			created, skipped, err := e.materializeTemplate(template, now)

			mu.Lock()
			defer mu.Unlock()
			result.Created += created
			result.Skipped += skipped
			if err != nil {
				log.Error().
					Err(err).
					Str("user", userID.String()).
					Str("template", template.ID.String()).
					Msg("template materialization failed")
				result.Errors = append(result.Errors, template.ID)
			}

			return nil
		})
	}

	// Errors are collected per template, the group itself never fails.
	_ = g.Wait()

	slices.SortFunc(result.Errors, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})

	materializedCount.Add(float64(result.Created))
	skippedCount.Add(float64(result.Skipped))
	templateErrorCount.Add(float64(len(result.Errors)))

	return result, nil
}

// materializeTemplate creates the missing expenses for a single template.
// A failed occurrence aborts this template only.
func (e *Engine) materializeTemplate(template models.Template, now time.Time) (created, skipped int, err error) {
	// Defensive validation: template hooks enforce this on save, but the
	// engine must also survive malformed rows written before they existed.
	if template.DueDay < 1 || template.DueDay > 31 {
		return 0, 0, models.ErrDueDayInvalid
	}

	if template.EndDate != nil && template.StartDate.After(*template.EndDate) {
		return 0, 0, models.ErrDateRangeInverted
	}

	for _, month := range Horizon(template.StartDate, template.EndDate, now) {
		key := MaterializationKey(template.ID, month)
		dueDate := month.Day(template.DueDay)

		err := models.DB.Transaction(func(tx *gorm.DB) error {
			// Primary check: the materialization key.
			existing, err := models.ExpenseByKey(tx, template.UserID, key)
			if err != nil {
				return err
			}
			if existing != nil {
				return models.ErrAlreadyMaterialized
			}

			// Secondary check: expenses written before keys existed carry
			// none, match them on the exact resolved due date instead.
			legacy, err := models.ExpenseByTemplateAndDate(tx, template.UserID, template.ID, dueDate)
			if err != nil {
				return err
			}
			if legacy != nil {
				return models.ErrAlreadyMaterialized
			}

			expense := models.Expense{
				UserID:             template.UserID,
				Name:               template.Name,
				Note:               template.Note,
				Category:           template.Category,
				Amount:             template.Amount,
				DueDate:            dueDate,
				Status:             models.ExpenseStatusPending,
				TemplateID:         &template.ID,
				MaterializationKey: &key,
			}

			// A concurrent run in another process can still insert between
			// the checks above and this write. The unique index on the key
			// then rejects the write, which the create callback rewrites
			// to ErrAlreadyMaterialized.
			return tx.Create(&expense).Error
		})

		switch {
		case err == nil:
			created++
		case errors.Is(err, models.ErrAlreadyMaterialized):
			skipped++
		default:
			return created, skipped, err
		}
	}

	return created, skipped, nil
}

// tryAcquire marks a materialization run for the user as in progress.
// It reports false without blocking when one is already running.
func (e *Engine) tryAcquire(userID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.running[userID]; ok {
		return false
	}

	e.running[userID] = struct{}{}
	return true
}

func (e *Engine) release(userID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, userID)
}
