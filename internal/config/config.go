package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InfoDir  string `toml:"info_dir" yaml:"info_dir"`
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
	LogDir   string `toml:"log_dir" yaml:"log_dir"`
}

// App contains run-level behaviour switches.
type App struct {
	ClearInfoDir bool `toml:"clear_info_dir" yaml:"clear_info_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" yaml:"format"`
	Level         string `toml:"level" yaml:"level"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// SevenZip configures the external archiver.
type SevenZip struct {
	Binary string `toml:"binary" yaml:"binary"`
	// OutputEncoding names the code page the archiver writes its listing in
	// (for example "gbk" or "windows-1252"). Empty means UTF-8.
	OutputEncoding string   `toml:"output_encoding" yaml:"output_encoding"`
	ExtraArgs      []string `toml:"extra_args" yaml:"extra_args"`
}

// Ledger configures the optional SQLite run history.
type Ledger struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Flow holds the ordered step definitions. Each step is a map with a
// required "name" discriminator.
type Flow struct {
	Steps []map[string]any `toml:"steps" yaml:"steps"`
}

// Config encapsulates all configuration values for autounpack.
//
// Configuration sections:
//   - Paths: info, cache, and log directories
//   - App: run-level switches
//   - Logging: log format, level, and retention
//   - SevenZip: archiver binary and output decoding
//   - Ledger: optional SQLite history of runs
//   - Flow: the pipeline steps
type Config struct {
	Paths    Paths    `toml:"paths" yaml:"paths"`
	App      App      `toml:"app" yaml:"app"`
	Logging  Logging  `toml:"logging" yaml:"logging"`
	SevenZip SevenZip `toml:"sevenzip" yaml:"sevenzip"`
	Ledger   Ledger   `toml:"ledger" yaml:"ledger"`
	Flow     Flow     `toml:"flow" yaml:"flow"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, merges the optional mode overlay, and validates a
// configuration file. It returns the config, the resolved base path, and
// whether that file existed.
func Load(path, mode string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		merged, err := readDocument(resolvedPath)
		if err != nil {
			return nil, "", false, err
		}
		if mode = strings.TrimSpace(mode); mode != "" {
			overlayPath := OverlayPath(resolvedPath, mode)
			if _, statErr := os.Stat(overlayPath); statErr == nil {
				overlay, err := readDocument(overlayPath)
				if err != nil {
					return nil, "", false, err
				}
				merged = deepMerge(merged, overlay)
			} else if !errors.Is(statErr, fs.ErrNotExist) {
				return nil, "", false, fmt.Errorf("stat overlay config: %w", statErr)
			}
		}
		if err := decodeInto(merged, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// OverlayPath returns the mode overlay file name for base, for example
// config.toml + "dev" gives config.dev.toml.
func OverlayPath(base, mode string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + mode + ext
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	candidates := []string{defaultPath}
	for _, name := range projectConfigNames {
		projectPath, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, projectPath)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// Marshal renders the config in the given format ("toml" or "yaml").
func (c *Config) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		return toml.Marshal(c)
	case "yaml", "yml":
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InfoDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the path of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.InfoDir, ".autounpack.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
