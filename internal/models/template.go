package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TemplateStatus is the lifecycle state of a recurring expense template.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusFinished TemplateStatus = "finished"
)

// Template is a recurring expense definition. Expenses are materialized
// from it, one per calendar month, by the recurring engine.
type Template struct {
	DefaultModel
	UserID   uuid.UUID       `json:"userId" gorm:"index"`
	Name     string          `json:"name"`
	Note     string          `json:"note"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	// DueDay is the nominal day of month (1-31) the expense is due.
	// It is clamped to the last day of shorter months at materialization.
	DueDay    int            `json:"dueDay"`
	StartDate time.Time      `json:"startDate"`
	EndDate   *time.Time     `json:"endDate"` // nil means the template recurs indefinitely
	Status    TemplateStatus `json:"status" gorm:"default:active"`
}

func (t *Template) BeforeSave(_ *gorm.DB) error {
	// BeforeSave runs before BeforeCreate, so the default has to be set
	// here for validate() to see it.
	if t.Status == "" {
		t.Status = TemplateStatusActive
	}

	t.Name = strings.TrimSpace(t.Name)
	t.Note = strings.TrimSpace(t.Note)
	t.Category = strings.TrimSpace(t.Category)

	t.StartDate = t.StartDate.In(time.UTC)
	if t.EndDate != nil {
		e := t.EndDate.In(time.UTC)
		t.EndDate = &e
	}

	return t.validate()
}

// BeforeUpdate verifies the incoming values before committing an
// update. BeforeSave only sees the loaded model, so partial updates
// have to be checked against the statement destination here.
func (t *Template) BeforeUpdate(tx *gorm.DB) error {
	toSave, ok := tx.Statement.Dest.(Template)
	if !ok {
		return nil
	}

	if tx.Statement.Changed("Amount") && toSave.Amount.IsNegative() {
		return ErrTemplateAmountNegative
	}

	if tx.Statement.Changed("DueDay") && (toSave.DueDay < 1 || toSave.DueDay > 31) {
		return ErrDueDayInvalid
	}

	if tx.Statement.Changed("Status") &&
		toSave.Status != TemplateStatusActive && toSave.Status != TemplateStatusFinished {
		return ErrTemplateStatusInvalid
	}

	if tx.Statement.Changed("StartDate") || tx.Statement.Changed("EndDate") {
		start := t.StartDate
		if tx.Statement.Changed("StartDate") {
			start = toSave.StartDate
		}

		end := t.EndDate
		if tx.Statement.Changed("EndDate") {
			end = toSave.EndDate
		}

		if end != nil && start.After(*end) {
			return ErrDateRangeInverted
		}
	}

	return nil
}

func (t *Template) validate() error {
	if t.Amount.IsNegative() {
		return ErrTemplateAmountNegative
	}

	if t.DueDay < 1 || t.DueDay > 31 {
		return ErrDueDayInvalid
	}

	if t.EndDate != nil && t.StartDate.After(*t.EndDate) {
		return ErrDateRangeInverted
	}

	if t.Status != TemplateStatusActive && t.Status != TemplateStatusFinished {
		return ErrTemplateStatusInvalid
	}

	return nil
}

// ActiveTemplates returns all active templates for a user.
func ActiveTemplates(db *gorm.DB, userID uuid.UUID) ([]Template, error) {
	var templates []Template
	err := db.
		Where(&Template{UserID: userID, Status: TemplateStatusActive}).
		Order("templates.name ASC").
		Find(&templates).Error

	return templates, err
}
