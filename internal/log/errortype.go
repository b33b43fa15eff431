package log

import (
	"context"
	"errors"

	"ledger/internal/core"
)

// ErrorType classifies err into one of the ErrorType* categories.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrMonthClosed):
		return ErrorTypeMonthClosed
	case errors.Is(err, core.ErrRuleBlocked):
		return ErrorTypeRuleBlocked
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return ErrorTypeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeNetwork
	default:
		return ErrorTypeInternal
	}
}
