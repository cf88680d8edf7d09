package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEndpoint  = "endpoint"
	FieldBaseURL   = "base_url"

	// Entity fields
	FieldChannelID   = "channel_id"
	FieldGroupID     = "group_id"
	FieldRecordingID = "recording_id"
	FieldTimerID     = "timer_id"
	FieldHandle      = "handle"
	FieldUserID      = "user_id"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldAttempt  = "attempt"
)
