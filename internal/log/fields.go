package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldUserID    = "user_id"
	FieldGoalID    = "goal_id"
	FieldJobID     = "job_id"
	FieldAmount    = "amount"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)
