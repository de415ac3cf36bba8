package fileops

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"autounpack/internal/artifact"
	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// LogConfig configures the log step.
type LogConfig struct {
	plugin.LoadKey `yaml:",inline"`
	FileName       string `yaml:"file_name"`
}

func (c *LogConfig) SetDefaults() { c.FileName = "log" }

func (c *LogConfig) Validate() error {
	c.FileName = strings.TrimSpace(c.FileName)
	if c.FileName == "" {
		return errors.New("file_name is required")
	}
	if strings.ContainsAny(c.FileName, `/\`) {
		return errors.New("file_name must be a bare name")
	}
	return nil
}

type logPlugin struct {
	cfg     *LogConfig
	infoDir string
	store   *store.Store
	logger  *slog.Logger
}

// LogDefinition registers the log step.
func LogDefinition() plugin.Definition {
	return plugin.Define("log", "write a context to a JSON file in the info directory", func(cfg *LogConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &logPlugin{cfg: cfg, infoDir: deps.Global.InfoDir, store: deps.Store, logger: deps.Logger}, nil
	})
}

func (p *logPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	loaded, err := p.store.Load(p.cfg.LoadFrom())
	if err != nil {
		return err
	}
	path, err := artifact.WriteJSON(p.infoDir, p.cfg.FileName, loaded)
	if err != nil {
		return err
	}
	logger.Info("context saved",
		logging.String(logging.FieldPath, path),
		logging.Int("files", loaded.Len()),
	)
	return nil
}
