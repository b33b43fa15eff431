package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSuccess     = "success"
	FieldDuration    = "duration_ms"
	FieldOwnerID     = "owner_id"
	FieldPeriod      = "period"
	FieldCategoryID  = "category_id"
	FieldTransaction = "transaction_id"
	FieldAmount      = "amount"
	FieldType        = "type"
	FieldRule        = "rule"
	FieldStatus      = "status"
	FieldEventType   = "event_type"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentCLI         = "cli"
	ComponentTransaction = "transaction"
	ComponentCategory    = "category"
	ComponentBudget      = "budget"
	ComponentClosure     = "closure"
	ComponentRules       = "rules"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentCache       = "cache"
	ComponentBackend     = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpClose    = "close"
	OpReopen   = "reopen"
	OpReassign = "reassign"
	OpValidate = "validate"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeMonthClosed   = "month_closed_error"
	ErrorTypeRuleBlocked   = "rule_blocked_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithOwner scopes the entry to an owner and, when set, a period
func (f LogFields) WithOwner(ownerID, period string) LogFields {
	f[FieldOwnerID] = ownerID
	if period != "" {
		f[FieldPeriod] = period
	}
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, categoryID, typ, amount string) LogFields {
	f[FieldTransaction] = id
	f[FieldCategoryID] = categoryID
	f[FieldType] = typ
	f[FieldAmount] = amount
	return f
}

// Set adds an arbitrary field
func (f LogFields) Set(key string, value any) LogFields {
	f[key] = value
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
