package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Essential   Priority = "essential"
	Superfluous Priority = "superfluous"
)

const (
	ClosureClosed   ClosureStatus = "closed"
	ClosureReopened ClosureStatus = "reopened"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
	maxNotesLength       = 1000
)

type (
	TransactionType string
	Priority        string
	ClosureStatus   string

	Category struct {
		ID          string
		OwnerID     string
		Name        string
		Description string
		Color       string
		Type        TransactionType
		Priority    Priority
		Limit       *Money // nil when the category has no spending limit
		Active      bool
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	Transaction struct {
		ID          string
		OwnerID     string
		CategoryID  string
		Description string
		Value       Money
		Type        TransactionType
		Date        time.Time
		Notes       string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	MonthlyBudget struct {
		ID        string
		OwnerID   string
		Period    YearMonth
		Value     Money
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	MonthlyClosure struct {
		ID           string
		OwnerID      string
		Period       YearMonth
		ClosedAt     time.Time
		Status       ClosureStatus
		TotalIncome  Money
		TotalExpense Money
		NetBalance   Money
		Notes        string
	}

	// AuditEntry is a persisted trace of a ledger event.
	AuditEntry struct {
		ID         string
		OwnerID    string
		EventType  string
		Period     string
		EntityID   string
		Payload    string
		OccurredAt time.Time
	}
)

func (t TransactionType) Valid() bool { return t == Income || t == Expense }
func (p Priority) Valid() bool        { return p == Essential || p == Superfluous }

// ParseTransactionType accepts the canonical lower-case names, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// HasLimit reports whether a positive spending limit is configured.
func (c Category) HasLimit() bool {
	return c.Limit != nil && c.Limit.IsPositive()
}

func (c Category) Validate() error {
	var fields []string
	if strings.TrimSpace(c.OwnerID) == "" {
		fields = append(fields, "owner id is required")
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		fields = append(fields, "name is required")
	} else if len(name) > maxNameLength {
		fields = append(fields, fmt.Sprintf("name too long (max %d characters)", maxNameLength))
	}
	if len(c.Description) > maxDescriptionLength {
		fields = append(fields, fmt.Sprintf("description too long (max %d characters)", maxDescriptionLength))
	}
	if !c.Type.Valid() {
		fields = append(fields, "type must be income or expense")
	}
	if !c.Priority.Valid() {
		fields = append(fields, "priority must be essential or superfluous")
	}
	if c.Limit != nil && c.Limit.IsNegative() {
		fields = append(fields, "limit cannot be negative")
	}
	return NewValidationError(fields...)
}

func (t Transaction) Validate() error {
	var fields []string
	if strings.TrimSpace(t.OwnerID) == "" {
		fields = append(fields, "owner id is required")
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		fields = append(fields, "category id is required")
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		fields = append(fields, "description is required")
	} else if len(desc) > maxDescriptionLength {
		fields = append(fields, fmt.Sprintf("description too long (max %d characters)", maxDescriptionLength))
	}
	if !t.Value.IsPositive() {
		fields = append(fields, "value must be greater than zero")
	}
	if !t.Type.Valid() {
		fields = append(fields, "type must be income or expense")
	}
	if t.Date.IsZero() {
		fields = append(fields, "date is required")
	}
	if len(t.Notes) > maxNotesLength {
		fields = append(fields, fmt.Sprintf("notes too long (max %d characters)", maxNotesLength))
	}
	return NewValidationError(fields...)
}

func (b MonthlyBudget) Validate() error {
	var fields []string
	if strings.TrimSpace(b.OwnerID) == "" {
		fields = append(fields, "owner id is required")
	}
	if b.Period.IsZero() {
		fields = append(fields, "period is required")
	}
	if !b.Value.IsPositive() {
		fields = append(fields, "budget value must be greater than zero")
	}
	return NewValidationError(fields...)
}

// YearMonth identifies a calendar month, rendered as "YYYY-MM".
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses the "YYYY-MM" form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// MustYearMonth panics on malformed input. Intended for literals.
func MustYearMonth(s string) YearMonth {
	ym, err := ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return ym
}

// YearMonthOf returns the calendar month t falls in, in t's location.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) IsZero() bool { return ym.Year == 0 && ym.Month == 0 }

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Bounds returns the first and last day of the month at midnight UTC.
func (ym YearMonth) Bounds() (first, last time.Time) {
	first = time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// Contains reports whether t's calendar date falls within the month.
func (ym YearMonth) Contains(t time.Time) bool {
	return t.Year() == ym.Year && t.Month() == ym.Month
}

func (ym YearMonth) Prev() YearMonth {
	first, _ := ym.Bounds()
	return YearMonthOf(first.AddDate(0, -1, 0))
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// DateOnly drops the time of day, keeping the calendar date as midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
