package fileops

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"autounpack/internal/logging"
	"autounpack/internal/pathmatch"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// ScanConfig configures the scan step.
type ScanConfig struct {
	plugin.SaveKey `yaml:",inline"`
	Dir            string   `yaml:"dir"`
	Includes       []string `yaml:"includes"`
	Excludes       []string `yaml:"excludes"`
	IncludeDir     bool     `yaml:"include_dir"`
	Deep           bool     `yaml:"deep"`
}

func (c *ScanConfig) SetDefaults() {
	c.Includes = append([]string(nil), pathmatch.DefaultIncludes...)
	c.Deep = true
}

func (c *ScanConfig) Validate() error {
	var err error
	if c.Dir, err = expandDir("dir", c.Dir); err != nil {
		return err
	}
	if err := pathmatch.Validate(c.Includes); err != nil {
		return err
	}
	return pathmatch.Validate(c.Excludes)
}

type scanPlugin struct {
	cfg      *ScanConfig
	includes []string
	store    *store.Store
	logger   *slog.Logger
}

// ScanDefinition registers the scan step.
func ScanDefinition() plugin.Definition {
	return plugin.Define("scan", "collect files below a directory into a context", func(cfg *ScanConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &scanPlugin{
			cfg:      cfg,
			includes: scanIncludes(cfg.Includes, cfg.Deep),
			store:    deps.Store,
			logger:   deps.Logger,
		}, nil
	})
}

// scanIncludes makes relative patterns match at any depth in deep mode.
func scanIncludes(patterns []string, deep bool) []string {
	if !deep {
		return patterns
	}
	out := make([]string, 0, len(patterns)*2)
	for _, p := range patterns {
		out = append(out, p)
		slashed := filepath.ToSlash(p)
		if !strings.HasPrefix(slashed, "**/") && !strings.HasPrefix(slashed, "/") {
			out = append(out, "**/"+slashed)
		}
	}
	return out
}

func (p *scanPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	if err := requireDir(p.cfg.Dir); err != nil {
		return err
	}

	var refs []store.FileRef
	sizes := make(map[string]int64)
	err := filepath.WalkDir(p.cfg.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == p.cfg.Dir {
			return nil
		}
		if d.IsDir() && !p.cfg.Deep {
			if p.cfg.IncludeDir {
				refs = append(refs, store.NewFileRef(path, p.cfg.Dir))
			}
			return filepath.SkipDir
		}
		if d.IsDir() && !p.cfg.IncludeDir {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				sizes[path] = info.Size()
			}
		}
		refs = append(refs, store.NewFileRef(path, p.cfg.Dir))
		return nil
	})
	if err != nil {
		return err
	}

	selected := store.NewContext(pathmatch.Select(refs, p.includes, p.cfg.Excludes)...)
	p.store.Save(p.cfg.SaveTo(), selected)
	var total int64
	for _, ref := range selected.Files {
		total += sizes[ref.Path]
	}
	logger.Info("scan complete",
		logging.String("dir", p.cfg.Dir),
		logging.Int("walked", len(refs)),
		logging.Int("found", selected.Len()),
		logging.Int64("found_bytes", total),
		logging.String("save_key", p.cfg.SaveTo()),
	)
	return nil
}
