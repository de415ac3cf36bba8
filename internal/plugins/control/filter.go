package control

import (
	"context"
	"errors"
	"log/slog"

	"autounpack/internal/logging"
	"autounpack/internal/pathmatch"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// FilterConfig configures the filter step. Includes and Excludes form an
// implicit glob rule evaluated before Rules.
type FilterConfig struct {
	plugin.LoadKey `yaml:",inline"`
	plugin.SaveKey `yaml:",inline"`
	Includes       []string     `yaml:"includes"`
	Excludes       []string     `yaml:"excludes"`
	ExcludeKey     string       `yaml:"exclude_key"`
	Rules          []RuleConfig `yaml:"rules"`
}

// Validate compiles globs and rules so a bad pattern fails the build.
func (c *FilterConfig) Validate() error {
	if err := pathmatch.Validate(c.Includes); err != nil {
		return err
	}
	if err := pathmatch.Validate(c.Excludes); err != nil {
		return err
	}
	if c.ExcludeKey != "" && c.ExcludeKey == c.SaveTo() {
		return errors.New("exclude_key must differ from save_key")
	}
	_, err := compileRules(c.Rules)
	return err
}

type filterPlugin struct {
	cfg    *FilterConfig
	rules  []Rule
	store  *store.Store
	logger *slog.Logger
}

// FilterDefinition registers the filter step.
func FilterDefinition() plugin.Definition {
	return plugin.Define("filter", "narrow a context through glob, size, and time rules", newFilter)
}

func newFilter(cfg *FilterConfig, deps plugin.Deps) (plugin.Plugin, error) {
	implicit, err := newGlobRule(cfg.Includes, cfg.Excludes)
	if err != nil {
		return nil, err
	}
	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	return &filterPlugin{
		cfg:    cfg,
		rules:  append([]Rule{implicit}, rules...),
		store:  deps.Store,
		logger: deps.Logger,
	}, nil
}

func (p *filterPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	loaded, err := p.store.Load(p.cfg.LoadFrom())
	if err != nil {
		return err
	}
	for _, rule := range p.rules {
		logger.Debug("filter rule", logging.String("rule", rule.String()))
	}
	kept, err := applyRules(p.rules, loaded.Files)
	if err != nil {
		return err
	}
	survivors := store.NewContext(kept...)
	p.store.Save(p.cfg.SaveTo(), survivors)

	attrs := []logging.Attr{
		logging.Int("loaded", loaded.Len()),
		logging.Int("kept", survivors.Len()),
		logging.String("save_key", p.cfg.SaveTo()),
	}
	if p.cfg.ExcludeKey != "" {
		rest := loaded.Subtract(survivors)
		p.store.Save(p.cfg.ExcludeKey, rest)
		attrs = append(attrs,
			logging.Int("excluded", rest.Len()),
			logging.String("exclude_key", p.cfg.ExcludeKey),
		)
	}
	logger.Info("filter applied", logging.Args(attrs...)...)
	return nil
}
