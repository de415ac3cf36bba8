package control

import (
	"context"
	"fmt"
	"log/slog"

	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// CaseConfig is one switch branch: a rule plus the key its matches go to.
type CaseConfig struct {
	RuleConfig `yaml:",inline"`
	SaveKey    string `yaml:"save_key"`
}

// SwitchConfig configures the switch step.
type SwitchConfig struct {
	plugin.LoadKey `yaml:",inline"`
	Cases          []CaseConfig `yaml:"cases"`
	DefaultKey     string       `yaml:"default_key"`
}

// Validate requires a save key and a valid rule on every case. Without
// cases every file goes to the default key, which must then be set.
func (c *SwitchConfig) Validate() error {
	if len(c.Cases) == 0 && c.DefaultKey == "" {
		return fmt.Errorf("cases or default_key is required")
	}
	for i, cs := range c.Cases {
		if cs.SaveKey == "" {
			return fmt.Errorf("cases[%d]: save_key is required", i)
		}
		if _, err := cs.Compile(); err != nil {
			return fmt.Errorf("cases[%d]: %w", i, err)
		}
	}
	return nil
}

type switchCase struct {
	rule Rule
	key  string
}

type switchPlugin struct {
	cfg    *SwitchConfig
	cases  []switchCase
	store  *store.Store
	logger *slog.Logger
}

// SwitchDefinition registers the switch step.
func SwitchDefinition() plugin.Definition {
	return plugin.Define("switch", "route each file to the first matching case", newSwitch)
}

func newSwitch(cfg *SwitchConfig, deps plugin.Deps) (plugin.Plugin, error) {
	cases := make([]switchCase, 0, len(cfg.Cases))
	for i, cs := range cfg.Cases {
		rule, err := cs.Compile()
		if err != nil {
			return nil, fmt.Errorf("cases[%d]: %w", i, err)
		}
		cases = append(cases, switchCase{rule: rule, key: cs.SaveKey})
	}
	return &switchPlugin{cfg: cfg, cases: cases, store: deps.Store, logger: deps.Logger}, nil
}

func (p *switchPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	loaded, err := p.store.Load(p.cfg.LoadFrom())
	if err != nil {
		return err
	}

	// Cases see only what earlier cases left behind, so a file lands in at
	// most one of them.
	remainder := loaded
	for _, cs := range p.cases {
		matched, err := cs.rule.Apply(remainder.Files)
		if err != nil {
			return fmt.Errorf("case %s: %w", cs.key, err)
		}
		hit := store.NewContext(matched...)
		p.store.Save(cs.key, hit)
		remainder = remainder.Subtract(hit)
		logger.Debug("switch case evaluated",
			logging.String("rule", cs.rule.String()),
			logging.String("save_key", cs.key),
			logging.Int("matched", hit.Len()),
		)
	}
	if p.cfg.DefaultKey != "" {
		p.store.Save(p.cfg.DefaultKey, remainder)
	}
	logger.Info("switch applied",
		logging.Int("loaded", loaded.Len()),
		logging.Int("cases", len(p.cases)),
		logging.Int("unmatched", remainder.Len()),
	)
	return nil
}
