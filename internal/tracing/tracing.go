package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey       contextKey = "trace_id"
	operationNameKey contextKey = "operation_name"
)

// GenerateTraceID generate trace id, format as ob-{{uuid}}.
func GenerateTraceID() string {
	id := uuid.New()
	return fmt.Sprintf("ob-%s", id.String())
}

// WithTraceID store trace id to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID get trace id from context.
func GetTraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	return v, ok && v != ""
}

// WithOperationName store operation name to context.
func WithOperationName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationNameKey, name)
}

// GetOperationName get operation name from context.
func GetOperationName(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(operationNameKey).(string)
	return v, ok && v != ""
}
