// Package contextkeys provides centralized context key definitions
//
// All context keys used across pluginhost are defined here so that packages
// setting a value and packages reading it agree on one key.
//
//	ctx = contextkeys.WithRunID(ctx, runID)
//	runID := contextkeys.GetRunID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RunIDKey contains the resolution run id string (UUID)
	// Set by: registry.Registry.Init
	// Used by: observability.FromContext log entries
	RunIDKey Key = "run_id"

	// RequestIDKey contains the HTTP request id string
	// Set by: httputil.RequestIDMiddleware
	// Used by: request logging, panic recovery
	RequestIDKey Key = "request_id"

	// LoggerKey contains *logrus.Logger
	// Set by: registry.Registry.Init
	// Used by: observability.GetLogger
	LoggerKey Key = "logger"
)

// WithRunID adds the resolution run id to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the resolution run id from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
