package fileops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"autounpack/internal/fileutil"
	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// Rename rule modes.
const (
	RenameReplace = "replace"
	RenameRegex   = "re"
)

// RenameRule is one step of a rename chain. Replace rules use Search and a
// Count of -1 for all occurrences; re rules use Pattern, Flags, and a Count
// of 0 for all matches.
type RenameRule struct {
	Mode    string `yaml:"mode"`
	Search  string `yaml:"search"`
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
	Count   *int   `yaml:"count"`
	Flags   string `yaml:"flags"`
}

// RenameConfig configures the rename step.
type RenameConfig struct {
	plugin.LoadKey `yaml:",inline"`
	plugin.SaveKey `yaml:",inline"`
	Rules          []RenameRule `yaml:"rules"`
}

func (c *RenameConfig) Validate() error {
	_, err := compileRenameRules(c.Rules)
	return err
}

type renamer func(name string) string

func compileRenameRules(rules []RenameRule) ([]renamer, error) {
	out := make([]renamer, 0, len(rules))
	for i, rule := range rules {
		fn, err := rule.compile()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		out = append(out, fn)
	}
	return out, nil
}

func (r RenameRule) compile() (renamer, error) {
	switch strings.ToLower(strings.TrimSpace(r.Mode)) {
	case RenameReplace, "":
		if r.Search == "" {
			return nil, errors.New("replace rule needs a search string")
		}
		count := -1
		if r.Count != nil {
			count = *r.Count
		}
		return func(name string) string {
			return strings.Replace(name, r.Search, r.Replace, count)
		}, nil
	case RenameRegex:
		if r.Pattern == "" {
			return nil, errors.New("re rule needs a pattern")
		}
		re, err := compilePattern(r.Pattern, r.Flags)
		if err != nil {
			return nil, err
		}
		count := 0
		if r.Count != nil {
			count = *r.Count
		}
		if count < 0 {
			return nil, fmt.Errorf("re rule count must be >= 0 (got %d)", count)
		}
		template := convertTemplate(r.Replace)
		return func(name string) string {
			return replaceN(re, name, template, count)
		}, nil
	default:
		return nil, fmt.Errorf("unknown rename mode %q (allowed: replace, re)", r.Mode)
	}
}

type renamePlugin struct {
	cfg    *RenameConfig
	rules  []renamer
	store  *store.Store
	logger *slog.Logger
}

// RenameDefinition registers the rename step.
func RenameDefinition() plugin.Definition {
	return plugin.Define("rename", "rename files through an ordered rule chain", func(cfg *RenameConfig, deps plugin.Deps) (plugin.Plugin, error) {
		rules, err := compileRenameRules(cfg.Rules)
		if err != nil {
			return nil, err
		}
		return &renamePlugin{cfg: cfg, rules: rules, store: deps.Store, logger: deps.Logger}, nil
	})
}

func (p *renamePlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	loaded, err := p.store.Load(p.cfg.LoadFrom())
	if err != nil {
		return err
	}

	renamed := make([]store.FileRef, 0, loaded.Len())
	changed := 0
	for _, ref := range loaded.Files {
		current := ref
		for _, rule := range p.rules {
			next, err := renameOnDisk(current.Path, rule(current.Name()))
			if err != nil {
				return err
			}
			if next != current.Path {
				logger.Debug("file renamed",
					logging.String(logging.FieldPath, current.Path),
					logging.String("target", next),
				)
				current = current.WithPath(next)
			}
		}
		if current != ref {
			changed++
		}
		renamed = append(renamed, current)
	}

	p.store.Save(p.cfg.SaveTo(), store.NewContext(renamed...))
	logger.Info("rename complete",
		logging.Int("files", loaded.Len()),
		logging.Int("renamed", changed),
		logging.String("save_key", p.cfg.SaveTo()),
	)
	return nil
}

// renameOnDisk gives path the base name newName and returns the final path.
// A taken name gets a "(n)" suffix.
func renameOnDisk(path, newName string) (string, error) {
	if newName == "" || strings.ContainsAny(newName, `/\`) {
		return "", fmt.Errorf("rename %s: invalid target name %q", path, newName)
	}
	target := filepath.Join(filepath.Dir(path), newName)
	if target == path {
		return path, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	target = fileutil.NextAvailablePath(target, info.IsDir())
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return target, nil
}
