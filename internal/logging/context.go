package logging

import (
	"context"
	"log/slog"

	"courier/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPrincipal is the standardized structured logging key for principal identifiers.
	FieldPrincipal = "principal"
	// FieldToken is the standardized structured logging key for share tokens.
	FieldToken = "token"
	// FieldGroup is the standardized structured logging key for media-group correlation ids.
	FieldGroup = "group_id"
	// FieldCorrelationID is the standardized structured logging key for update correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if principal, ok := services.PrincipalFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldPrincipal, principal))
	}
	if token, ok := services.TokenFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldToken, token))
	}
	if group, ok := services.GroupFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldGroup, group))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
