package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Standard field names shared by every layer.
const (
	FieldLayer     = "layer"
	FieldAdapter   = "adapter"
	FieldUseCase   = "usecase"
	FieldAction    = "action"
	FieldEntityID  = "entity_id"
	FieldHandler   = "handler"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldClientIP  = "client_ip"
	FieldRequestID = "request_id"
	FieldDuration  = "duration"
	FieldStage     = "stage"
)

// WithCtx attaches logger to ctx.
func WithCtx(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromCtx returns the logger carried by ctx, or a disabled logger.
func FromCtx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// CtxWithFields returns a context whose logger carries fields.
func CtxWithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := zerolog.Ctx(ctx).With().Fields(fields).Logger()
	return logger.WithContext(ctx)
}
