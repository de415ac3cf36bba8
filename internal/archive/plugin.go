package archive

import (
	"context"
	"fmt"
	"log/slog"

	"autounpack/internal/plugin"
	"autounpack/internal/services/sevenzip"
	"autounpack/internal/store"
)

// Tool is the archiver the engine drives.
type Tool interface {
	List(ctx context.Context, path, password string) (*sevenzip.Result, error)
	Test(ctx context.Context, path, password string) (*sevenzip.Result, error)
	Extract(ctx context.Context, path, password, outDir string, keepDir bool) (*sevenzip.Result, error)
}

// Outcome is the final state of one input file, as handed to a Recorder.
type Outcome struct {
	Path    string
	Status  Status
	Code    string
	Output  string
	Message string
}

// Recorder persists outcomes beyond the run.
type Recorder interface {
	RecordOutcomes(ctx context.Context, runID, step, mode string, outcomes []Outcome) error
}

// Option configures Definition.
type Option func(*options)

type options struct {
	tool     Tool
	recorder Recorder
}

// WithTool replaces the 7-Zip client built from the global settings.
func WithTool(tool Tool) Option {
	return func(o *options) {
		if tool != nil {
			o.tool = tool
		}
	}
}

// WithRecorder records every step's outcomes.
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// Definition registers the archive step.
func Definition(opts ...Option) plugin.Definition {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return plugin.Define("archive", "identify, test, and extract archives with 7-Zip", func(cfg *Config, deps plugin.Deps) (plugin.Plugin, error) {
		tool := o.tool
		if tool == nil {
			client, err := sevenzip.New(deps.Global.SevenZip.Binary,
				sevenzip.WithEncoding(deps.Global.SevenZip.OutputEncoding),
				sevenzip.WithExtraArgs(deps.Global.SevenZip.ExtraArgs...),
			)
			if err != nil {
				return nil, fmt.Errorf("%w: archive: %v", plugin.ErrConfigInvalid, err)
			}
			tool = client
		}
		return NewEngine(cfg, tool, deps.Store, deps.Global, deps.Logger, o.recorder), nil
	})
}

// Engine runs the archive step.
type Engine struct {
	cfg      *Config
	tool     Tool
	policy   sevenzip.Policy
	store    *store.Store
	global   plugin.Global
	logger   *slog.Logger
	recorder Recorder
}

// NewEngine builds an engine for an already validated config.
func NewEngine(cfg *Config, tool Tool, st *store.Store, global plugin.Global, logger *slog.Logger, recorder Recorder) *Engine {
	return &Engine{
		cfg:      cfg,
		tool:     tool,
		policy:   sevenzip.NewPolicy(cfg.ResultProcessingMode, cfg.Recoverable),
		store:    st,
		global:   global,
		logger:   logger,
		recorder: recorder,
	}
}
