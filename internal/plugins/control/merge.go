package control

import (
	"context"
	"errors"
	"log/slog"

	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// MergeConfig configures the merge step.
type MergeConfig struct {
	plugin.SaveKey `yaml:",inline"`
	ContextKeys    []string `yaml:"context_keys"`
}

func (c *MergeConfig) Validate() error {
	if len(c.ContextKeys) == 0 {
		return errors.New("context_keys must not be empty")
	}
	return nil
}

type mergePlugin struct {
	cfg    *MergeConfig
	store  *store.Store
	logger *slog.Logger
}

// MergeDefinition registers the merge step.
func MergeDefinition() plugin.Definition {
	return plugin.Define("merge", "union several contexts into one", func(cfg *MergeConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &mergePlugin{cfg: cfg, store: deps.Store, logger: deps.Logger}, nil
	})
}

func (p *mergePlugin) Execute(ctx context.Context) error {
	inputs := make([]store.Context, 0, len(p.cfg.ContextKeys))
	for _, key := range p.cfg.ContextKeys {
		c, err := p.store.Load(key)
		if err != nil {
			return err
		}
		inputs = append(inputs, c)
	}
	merged := store.Union(inputs...)
	p.store.Save(p.cfg.SaveTo(), merged)
	logging.WithContext(ctx, p.logger).Info("contexts merged",
		logging.Any("context_keys", p.cfg.ContextKeys),
		logging.Int("files", merged.Len()),
		logging.String("save_key", p.cfg.SaveTo()),
	)
	return nil
}
