package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories surfaced to callers. Typed errors below unwrap to one of
// these so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrMonthClosed = errors.New("month is closed")
	ErrRuleBlocked = errors.New("blocked by business rules")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")

	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrValidation)
	ErrInvalidArgument  = fmt.Errorf("%w: invalid argument", ErrValidation)
)

var (
	ErrEmptyName        = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: description is required", ErrValidation)
	ErrEmptyOwner       = fmt.Errorf("%w: owner id is required", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: category id is required", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidType      = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidPriority  = fmt.Errorf("%w: invalid priority", ErrValidation)
	ErrInvalidPeriod    = fmt.Errorf("%w: invalid period, expected YYYY-MM", ErrValidation)
	ErrSameCategory     = fmt.Errorf("%w: source and target category must differ", ErrValidation)
	ErrTargetRequired   = fmt.Errorf("%w: category has linked transactions, choose a target category", ErrValidation)
	ErrInactiveCategory = fmt.Errorf("%w: category is not active", ErrValidation)
	ErrTypeMismatch     = fmt.Errorf("%w: category type does not match", ErrValidation)
	ErrCategoryChange   = fmt.Errorf("%w: category can only change through reassignment", ErrValidation)
)

// ValidationError carries a field-level message list.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns nil when no messages are given.
func NewValidationError(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// MonthClosedError reports a mutation attempted inside an archived period.
type MonthClosedError struct {
	OwnerID string
	Period  YearMonth
}

func (e *MonthClosedError) Error() string {
	return fmt.Sprintf("month %s is closed; reopen it before making changes", e.Period)
}

func (e *MonthClosedError) Unwrap() error { return ErrMonthClosed }

// RuleBlockedError aggregates every failing rule message of one evaluation.
type RuleBlockedError struct {
	Errors   []string
	Warnings []string
}

func (e *RuleBlockedError) Error() string {
	return "blocked by business rules: " + strings.Join(e.Errors, "; ")
}

func (e *RuleBlockedError) Unwrap() error { return ErrRuleBlocked }

// NotFoundError names the entity that did not resolve within the owner's scope.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a duplicate unique key.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists for %s", e.Entity, e.Key)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
