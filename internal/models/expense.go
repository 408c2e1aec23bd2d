package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseStatus is the payment state of an expense.
type ExpenseStatus string

const (
	ExpenseStatusPending ExpenseStatus = "pending"
	ExpenseStatusPaid    ExpenseStatus = "paid"
	ExpenseStatusOverdue ExpenseStatus = "overdue"
)

// Expense is a single dated expense. It is either entered manually or
// materialized from a Template, in which case TemplateID and
// MaterializationKey are set.
//
// The unique index on MaterializationKey is the actual correctness
// mechanism for idempotent materialization: a concurrent run that loses
// the check-then-insert race gets a rejected duplicate write instead of
// creating a second expense for the same month. Manual expenses carry a
// NULL key, which the index ignores.
type Expense struct {
	DefaultModel
	UserID   uuid.UUID       `json:"userId" gorm:"index"`
	Name     string          `json:"name"`
	Note     string          `json:"note"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"` // snapshot of the template amount at materialization
	DueDate  time.Time       `json:"dueDate"`
	Status   ExpenseStatus   `json:"status" gorm:"default:pending"`
	// TemplateID is a weak back-reference to the originating template.
	// There is no store-level cascade, deleting a template explicitly
	// deletes its expenses.
	TemplateID         *uuid.UUID `json:"templateId" gorm:"index"`
	MaterializationKey *string    `json:"materializationKey" gorm:"uniqueIndex"`
	// CarriedForwardFrom references the expense this one was carried
	// forward from, making correction chains traversable without name
	// matching.
	CarriedForwardFrom *uuid.UUID `json:"carriedForwardFrom"`
}

func (e *Expense) BeforeSave(_ *gorm.DB) error {
	// BeforeSave runs before BeforeCreate, so the default has to be set
	// here for the status check to see it.
	if e.Status == "" {
		e.Status = ExpenseStatusPending
	}

	e.Name = strings.TrimSpace(e.Name)
	e.Note = strings.TrimSpace(e.Note)
	e.Category = strings.TrimSpace(e.Category)
	e.DueDate = e.DueDate.In(time.UTC)

	switch e.Status {
	case ExpenseStatusPending, ExpenseStatusPaid, ExpenseStatusOverdue:
		return nil
	default:
		return ErrExpenseStatusInvalid
	}
}

// BeforeUpdate verifies the incoming values before committing an
// update. BeforeSave only sees the loaded model, so partial updates
// have to be checked against the statement destination here.
func (e *Expense) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Expense)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("Status") {
		switch toSave.Status {
		case ExpenseStatusPending, ExpenseStatusPaid, ExpenseStatusOverdue:
		default:
			return ErrExpenseStatusInvalid
		}
	}

	return nil
}

// ExpenseByKey returns the expense carrying the materialization key, or
// nil when no such expense exists.
func ExpenseByKey(db *gorm.DB, userID uuid.UUID, key string) (*Expense, error) {
	var expense Expense
	err := db.
		Where("expenses.user_id = ? AND expenses.materialization_key = ?", userID, key).
		First(&expense).Error
	if errors.Is(err, ErrResourceNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &expense, nil
}

// ExpenseByTemplateAndDate returns an expense for the template due on the
// exact date, or nil when none exists. This guards against data written
// before materialization keys were introduced.
func ExpenseByTemplateAndDate(db *gorm.DB, userID, templateID uuid.UUID, date time.Time) (*Expense, error) {
	var expense Expense
	err := db.
		Where("expenses.user_id = ? AND expenses.template_id = ? AND expenses.due_date = ?", userID, templateID, date.In(time.UTC)).
		First(&expense).Error
	if errors.Is(err, ErrResourceNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &expense, nil
}

// ExpensesByTemplate returns all expenses materialized from a template.
func ExpensesByTemplate(db *gorm.DB, userID, templateID uuid.UUID) ([]Expense, error) {
	var expenses []Expense
	err := db.
		Where("expenses.user_id = ? AND expenses.template_id = ?", userID, templateID).
		Order("expenses.due_date ASC").
		Find(&expenses).Error

	return expenses, err
}
