package fileops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"autounpack/internal/fileutil"
	"autounpack/internal/logging"
	"autounpack/internal/plugin"
)

// FlatConfig configures the flat step. A nil Depth walks the whole tree.
type FlatConfig struct {
	Dir   string `yaml:"dir"`
	Depth *int   `yaml:"depth"`
}

func (c *FlatConfig) Validate() error {
	if c.Depth != nil && *c.Depth < 1 {
		return fmt.Errorf("depth must be >= 1 (got %d)", *c.Depth)
	}
	var err error
	c.Dir, err = expandDir("dir", c.Dir)
	return err
}

type flatPlugin struct {
	cfg    *FlatConfig
	logger *slog.Logger
}

// FlatDefinition registers the flat step.
func FlatDefinition() plugin.Definition {
	return plugin.Define("flat", "pull nested files up into a directory's root", func(cfg *FlatConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &flatPlugin{cfg: cfg, logger: deps.Logger}, nil
	})
}

func (p *flatPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	if err := requireDir(p.cfg.Dir); err != nil {
		return err
	}
	entries, err := p.collect(p.cfg.Dir, 0)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Lstat(entry)
		if err != nil {
			return fmt.Errorf("flat %s: %w", entry, err)
		}
		target := fileutil.NextAvailablePath(filepath.Join(p.cfg.Dir, filepath.Base(entry)), info.IsDir())
		if err := os.Rename(entry, target); err != nil {
			return fmt.Errorf("flat %s: %w", entry, err)
		}
		logger.Debug("entry flattened",
			logging.String(logging.FieldPath, entry),
			logging.String("target", target),
		)
	}
	logger.Info("flat complete",
		logging.String("dir", p.cfg.Dir),
		logging.Int("moved", len(entries)),
	)
	return nil
}

// collect returns the entries below dir that move to the root. Files that
// already sit in the root are left alone. At the depth limit every entry is
// returned as is, directories included.
func (p *flatPlugin) collect(dir string, depth int) ([]string, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if p.cfg.Depth != nil && depth >= *p.cfg.Depth {
		out := make([]string, 0, len(children))
		for _, child := range children {
			out = append(out, filepath.Join(dir, child.Name()))
		}
		return out, nil
	}
	var out []string
	for _, child := range children {
		path := filepath.Join(dir, child.Name())
		if child.IsDir() {
			nested, err := p.collect(path, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		if depth == 0 {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}
