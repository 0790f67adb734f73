package utils

import (
	"context"
)

type contextKey string

const (
	ContextKeyUserName      contextKey = "userName"
	ContextKeyCorrelationId contextKey = "correlationId"
)

func getString(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

// GetUserNameFromContext returns the acting user recorded on created_by
// fields. Engine-generated entries (closing, reversal, adjustment) ignore it
// and stamp "System".
func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return getString(ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return getString(ctx, ContextKeyCorrelationId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return context.WithValue(ctx, ContextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}
