package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for import batch identifiers.
	FieldBatchID = "batch_id"
	// FieldLifterID is the standardized structured logging key for lifter identifiers.
	FieldLifterID = "lifter_id"
	// FieldName is the standardized structured logging key for normalized athlete names.
	FieldName = "name"
	// FieldMeetID is the standardized structured logging key for meet identifiers.
	FieldMeetID = "meet_id"
	// FieldTier is the standardized structured logging key for verification tier names.
	FieldTier = "tier"
	// FieldOutcome is the standardized structured logging key for resolution outcome codes.
	FieldOutcome = "outcome"
)

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	meetIDKey  contextKey = "meet_id"
)

// WithBatchID stores an import batch identifier on the context.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// WithMeetID stores a meet identifier on the context.
func WithMeetID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, meetIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(batchIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if id, ok := ctx.Value(meetIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldMeetID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
