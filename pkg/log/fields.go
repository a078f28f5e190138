package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Chat
	FieldConnID    = "conn_id"
	FieldUsername  = "username"
	FieldIsAdmin   = "is_admin"
	FieldFrameType = "frame_type"
	FieldMessageID = "message_id"
	FieldOnline    = "online"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
