package fileops

import (
	"context"
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

// Transfer modes.
const (
	TransferMove = "move"
	TransferCopy = "copy"
)

// Overwrite modes for a taken destination.
const (
	OverwriteRename  = "rename"
	OverwriteReplace = "overwrite"
	OverwriteSkip    = "skip"
)

// TransferConfig configures the transfer step.
type TransferConfig struct {
	plugin.LoadKey `yaml:",inline"`
	plugin.SaveKey `yaml:",inline"`
	Mode           string `yaml:"mode"`
	TargetDir      string `yaml:"target_dir"`
	KeepStructure  bool   `yaml:"keep_structure"`
	OverwriteMode  string `yaml:"overwrite_mode"`
}

func (c *TransferConfig) SetDefaults() {
	c.KeepStructure = true
	c.OverwriteMode = OverwriteRename
}

func (c *TransferConfig) Validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case TransferMove, TransferCopy:
	default:
		return fmt.Errorf("mode must be move or copy (got %q)", c.Mode)
	}
	c.OverwriteMode = strings.ToLower(strings.TrimSpace(c.OverwriteMode))
	switch c.OverwriteMode {
	case OverwriteRename, OverwriteReplace, OverwriteSkip:
	default:
		return fmt.Errorf("overwrite_mode must be rename, overwrite, or skip (got %q)", c.OverwriteMode)
	}
	var err error
	c.TargetDir, err = expandDir("target_dir", c.TargetDir)
	return err
}

type transferPlugin struct {
	cfg    *TransferConfig
	store  *store.Store
	logger *slog.Logger
}

// TransferDefinition registers the transfer step.
func TransferDefinition() plugin.Definition {
	return plugin.Define("transfer", "move or copy files into a target directory", func(cfg *TransferConfig, deps plugin.Deps) (plugin.Plugin, error) {
		return &transferPlugin{cfg: cfg, store: deps.Store, logger: deps.Logger}, nil
	})
}

func (p *transferPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	loaded, err := p.store.Load(p.cfg.LoadFrom())
	if err != nil {
		return err
	}

	moved := make([]store.FileRef, 0, loaded.Len())
	skipped := 0
	for _, ref := range loaded.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, ok, err := p.transfer(ref)
		if err != nil {
			return err
		}
		if !ok {
			skipped++
			logger.Debug("transfer skipped", logging.String(logging.FieldPath, ref.Path))
			continue
		}
		moved = append(moved, store.NewFileRef(target, p.cfg.TargetDir))
	}

	p.store.Save(p.cfg.SaveTo(), store.NewContext(moved...))
	logger.Info("transfer complete",
		logging.String("mode", p.cfg.Mode),
		logging.String("target_dir", p.cfg.TargetDir),
		logging.Int("transferred", len(moved)),
		logging.Int("skipped", skipped),
		logging.String("save_key", p.cfg.SaveTo()),
	)
	return nil
}

// transfer places one ref below the target directory. It reports false when
// the destination was taken and the overwrite mode is skip.
func (p *transferPlugin) transfer(ref store.FileRef) (string, bool, error) {
	target := filepath.Join(p.cfg.TargetDir, ref.Name())
	if p.cfg.KeepStructure {
		target = filepath.Join(p.cfg.TargetDir, ref.RelativePath())
	}
	if target == ref.Path {
		return target, true, nil
	}
	info, err := os.Stat(ref.Path)
	if err != nil {
		return "", false, fmt.Errorf("transfer %s: %w", ref.Path, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", false, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	if _, err := os.Lstat(target); err == nil {
		switch p.cfg.OverwriteMode {
		case OverwriteSkip:
			return "", false, nil
		case OverwriteReplace:
			if err := os.RemoveAll(target); err != nil {
				return "", false, fmt.Errorf("replace %s: %w", target, err)
			}
		default:
			target = fileutil.NextAvailablePath(target, info.IsDir())
		}
	}

	if p.cfg.Mode == TransferMove {
		err = fileutil.Move(ref.Path, target)
	} else {
		err = fileutil.CopyTree(ref.Path, target)
	}
	if err != nil {
		return "", false, fmt.Errorf("%s %s to %s: %w", p.cfg.Mode, ref.Path, target, err)
	}
	return target, true, nil
}
