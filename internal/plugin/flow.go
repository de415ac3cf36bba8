package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"autounpack/internal/logging"
)

// Step is one resolved entry of a Flow.
type Step struct {
	Name   string
	Label  string
	Plugin Plugin
}

// Flow is an ordered list of resolved steps.
type Flow struct {
	steps  []Step
	logger *slog.Logger
}

// FlowOption configures Build.
type FlowOption func(*flowOptions)

type flowOptions struct {
	labelPrefix string
}

// WithLabelPrefix numbers nested steps as "<prefix>.<n>".
func WithLabelPrefix(prefix string) FlowOption {
	return func(o *flowOptions) {
		o.labelPrefix = prefix
	}
}

// Build resolves every raw step through deps.Registry. Any failure aborts
// before a single step runs.
func Build(raws []map[string]any, deps Deps, opts ...FlowOption) (*Flow, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("%w: no plugin registry", ErrConfigInvalid)
	}
	var options flowOptions
	for _, opt := range opts {
		opt(&options)
	}

	steps := make([]Step, 0, len(raws))
	for i, raw := range raws {
		label := strconv.Itoa(i + 1)
		if options.labelPrefix != "" {
			label = options.labelPrefix + "." + label
		}
		name, _ := raw["name"].(string)
		p, err := deps.Registry.Resolve(raw, deps)
		if err != nil {
			return nil, fmt.Errorf("step %s (%s): %w", label, name, err)
		}
		steps = append(steps, Step{Name: name, Label: label, Plugin: p})
	}
	return &Flow{steps: steps, logger: logging.NewComponentLogger(deps.Logger, "flow")}, nil
}

// Steps returns the resolved steps in execution order.
func (f *Flow) Steps() []Step {
	return append([]Step(nil), f.steps...)
}

// Len reports the number of steps.
func (f *Flow) Len() int { return len(f.steps) }

// Run executes the steps sequentially. The first failing step aborts the
// flow.
func (f *Flow) Run(ctx context.Context) error {
	for _, step := range f.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepCtx := logging.WithStep(ctx, step.Name, step.Label)
		logger := logging.WithContext(stepCtx, f.logger)
		logger.Info("step started", logging.String(logging.FieldEventType, "step_start"))
		started := time.Now()
		if err := step.Plugin.Execute(stepCtx); err != nil {
			logging.ErrorWithContext(logger, "step failed", "step_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the step configuration or inputs and rerun"),
			)
			return fmt.Errorf("step %s (%s): %w", step.Label, step.Name, err)
		}
		logger.Info("step finished",
			logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
			logging.String(logging.FieldEventType, "step_complete"),
		)
	}
	return nil
}
