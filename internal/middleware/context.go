package middleware

import (
	"context"

	"github.com/google/uuid"
)

// Operator identifies the caller admitted by TokenGate.
type Operator struct {
	TokenFingerprint string
}

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	operatorKey     contextKey = "operator"
	engagementIDKey contextKey = "engagement_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}
	return v
}

func WithOperator(ctx context.Context, operator Operator) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

func OperatorFromContext(ctx context.Context) (Operator, bool) {
	v, ok := ctx.Value(operatorKey).(Operator)
	return v, ok
}

func WithEngagementID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, engagementIDKey, id)
}

func EngagementIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(engagementIDKey).(uuid.UUID)
	return v, ok
}
