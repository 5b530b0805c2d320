package services

import "context"

type contextKey string

const (
	principalKey contextKey = "principal"
	tokenKey     contextKey = "token"
	groupKey     contextKey = "group_id"
	requestIDKey contextKey = "request_id"
)

// WithPrincipal annotates context with the acting principal identifier.
func WithPrincipal(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, principalKey, id)
}

// PrincipalFromContext extracts the principal identifier if present.
func PrincipalFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithToken annotates context with a share token.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the share token if present.
func TokenFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(tokenKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithGroup annotates context with a media-group correlation id.
func WithGroup(ctx context.Context, group string) context.Context {
	if group == "" {
		return ctx
	}
	return context.WithValue(ctx, groupKey, group)
}

// GroupFromContext returns the group correlation id if present.
func GroupFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(groupKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(requestIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
