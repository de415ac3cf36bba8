package fileops

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// RemoveConfig configures the remove step.
type RemoveConfig struct {
	plugin.LoadKey `yaml:",inline"`
}

type removePlugin struct {
	cfg    *RemoveConfig
	store  *store.Store
	logger *slog.Logger
}

// RemoveDefinition registers the remove step.
func RemoveDefinition() plugin.Definition {
	return plugin.Define("remove", "delete every file and directory in a context", func(cfg *RemoveConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &removePlugin{cfg: cfg, store: deps.Store, logger: deps.Logger}, nil
	})
}

// Execute deletes the loaded refs and leaves an empty context behind under
// the same key.
func (p *removePlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	loaded, err := p.store.Load(p.cfg.LoadFrom())
	if err != nil {
		return err
	}
	removed := 0
	for _, ref := range loaded.Files {
		if _, err := os.Lstat(ref.Path); err != nil {
			continue
		}
		if err := os.RemoveAll(ref.Path); err != nil {
			return fmt.Errorf("remove %s: %w", ref.Path, err)
		}
		removed++
		logger.Debug("file removed", logging.String(logging.FieldPath, ref.Path))
	}
	p.store.Save(p.cfg.LoadFrom(), store.NewContext())
	logger.Info("remove complete",
		logging.Int("files", loaded.Len()),
		logging.Int("removed", removed),
	)
	return nil
}
