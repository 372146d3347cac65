package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldSessionID  = "session_id"
	FieldRequestID  = "request_id"
	FieldClientID   = "client_id"
	FieldTopicmapID = "topicmap_id"

	// Components
	FieldComponent = "component"

	// Model objects
	FieldObjectID   = "object_id"
	FieldObjectKind = "object_kind"
	FieldTopicID    = "topic_id"
	FieldAssocID    = "assoc_id"
	FieldTypeURI    = "type_uri"
	FieldRevealType = "reveal"

	// Engine state
	FieldPhase      = "phase"
	FieldEpoch      = "epoch"
	FieldDetailID   = "detail_id"
	FieldPinned     = "pinned"
	FieldVisible    = "visible"
	FieldDirective  = "directive"
	FieldRenderCall = "render_call"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts and sizes
	FieldCount  = "count"
	FieldWidth  = "width"
	FieldHeight = "height"

	// Status
	FieldState = "state"

	// Files and paths
	FieldFile = "file"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)

type contextKey string

const (
	sessionIDKey contextKey = "logger_session_id"
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithSessionID adds a session ID to the context for logging
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		fields = append(fields, FieldSessionID, id)
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, FieldRequestID, id)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns the global logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	func NewWriter(store Store) *Writer {
//	    return &Writer{logger: logger.ComponentLogger("persist.writer")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
