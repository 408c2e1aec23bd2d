package models

import "errors"

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	// ErrAlreadyMaterialized is returned when an expense for a
	// (template, month) pair already exists. It is an expected outcome of
	// the idempotent materialization flow, not a failure.
	ErrAlreadyMaterialized = errors.New("an expense for this template and month already exists")

	ErrTemplateAmountNegative = errors.New("template amounts must be zero or larger")
	ErrDueDayInvalid          = errors.New("the due day must be between 1 and 31")
	ErrDateRangeInverted      = errors.New("the start date must not be after the end date")
	ErrExpenseStatusInvalid   = errors.New("the expense status must be one of pending, paid, overdue")
	ErrTemplateStatusInvalid  = errors.New("the template status must be one of active, finished")
)
