package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldChatID      = "chat_id"
	FieldUser        = "user"
	FieldCommand     = "command"
	FieldIntent      = "intent"
	FieldSheet       = "sheet"
	FieldPeriod      = "period"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldRow         = "row"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentBot      = "bot"
	ComponentSheets   = "sheets"
	ComponentLedger   = "ledger"
	ComponentCategory = "category"
	ComponentReport   = "report"
	ComponentPending  = "pending"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpResolve  = "resolve"
	OpTeach    = "teach"
	OpSummary  = "summary"
	OpCompare  = "compare"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
