package log

const (
	// Service
	FieldService = "service"

	// Stream
	FieldURL       = "url"
	FieldAttempt   = "attempt"
	FieldFailures  = "failures"
	FieldDelay     = "delay"
	FieldTransport = "transport"
	FieldEventID   = "event_id"

	// Session
	FieldKind  = "kind"
	FieldView  = "view"
	FieldTimer = "timer"
	FieldQueue = "queue"

	// Photo
	FieldSink = "sink"
	FieldKey  = "key"
	FieldSize = "size"

	// HTTP
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldClientIP  = "client_ip"
	FieldRequestID = "request_id"
	FieldLatency   = "latency_ms"
	FieldClients   = "clients"
)
