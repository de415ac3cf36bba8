package fileops

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"autounpack/internal/fileutil"
	"autounpack/internal/logging"
	"autounpack/internal/plugin"
)

// EmptyConfig configures the empty step.
type EmptyConfig struct {
	Dir string `yaml:"dir"`
}

func (c *EmptyConfig) Validate() error {
	var err error
	c.Dir, err = expandDir("dir", c.Dir)
	return err
}

type emptyPlugin struct {
	cfg    *EmptyConfig
	logger *slog.Logger
}

// EmptyDefinition registers the empty step.
func EmptyDefinition() plugin.Definition {
	return plugin.Define("empty", "remove empty directories below a directory", func(cfg *EmptyConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &emptyPlugin{cfg: cfg, logger: deps.Logger}, nil
	})
}

func (p *emptyPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	info, err := os.Stat(p.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "empty step skipped", "empty_dir_missing",
			logging.String("dir", p.cfg.Dir),
			logging.String(logging.FieldImpact, "no directories were cleaned"),
			logging.String(logging.FieldErrorHint, "check the dir setting of the empty step"),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return requireDir(p.cfg.Dir)
	}
	removed, err := fileutil.RemoveEmptyDirs(p.cfg.Dir)
	if err != nil {
		return err
	}
	logger.Info("empty directories removed",
		logging.String("dir", p.cfg.Dir),
		logging.Int("removed", len(removed)),
	)
	return nil
}
