package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one pipeline run.
	FieldRunID = "run_id"
	// FieldStep is the plugin name of the step being executed.
	FieldStep = "step"
	// FieldStepIndex is the 1-based position of the step within its flow.
	FieldStepIndex = "step_index"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldPath is the file a log line is about.
	FieldPath = "path"
	// FieldStatus is an archive record status.
	FieldStatus = "status"
)

type contextKey int

const (
	runIDKey contextKey = iota
	stepKey
)

type stepInfo struct {
	name  string
	index string
}

// WithRunID tags ctx with the run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run identifier stored on ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithStep tags ctx with the step currently executing. Nested flows
// overwrite the value of their parent.
func WithStep(ctx context.Context, name, index string) context.Context {
	return context.WithValue(ctx, stepKey, stepInfo{name: name, index: index})
}

// StepFromContext returns the step name and index stored on ctx.
func StepFromContext(ctx context.Context) (name, index string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	step, ok := ctx.Value(stepKey).(stepInfo)
	return step.name, step.index, ok
}

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if step, ok := ctx.Value(stepKey).(stepInfo); ok {
		fields = append(fields, slog.String(FieldStep, step.name))
		if step.index != "" {
			fields = append(fields, slog.String(FieldStepIndex, step.index))
		}
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from ctx.
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
