package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldDate        = "date"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldDay         = "day"
	FieldTotalCost   = "total_cost"
	FieldMonthTotal  = "month_total"
	FieldItems       = "items"
	FieldSkipped     = "skipped_items"
	FieldDroppedRows = "dropped_rows"
	FieldPath        = "path"
	FieldBackend     = "backend"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentBilling = "billing"
	ComponentLedger  = "ledger"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentSentry  = "sentry"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpAggregate = "aggregate"
	OpReport    = "report"
	OpReconcile = "reconcile"
	OpPublish   = "publish"
	OpMirror    = "mirror"
	OpRebuild   = "rebuild"
	OpShow      = "show"
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

// WithErrorType adds the error category
func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDay adds the calendar day being processed
func (f LogFields) WithDay(year, month, day int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	f[FieldDay] = day
	return f
}

// WithCosts adds the daily total and the number of skipped provider items
func (f LogFields) WithCosts(total string, items, skipped int) LogFields {
	f[FieldTotalCost] = total
	f[FieldItems] = items
	f[FieldSkipped] = skipped
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
