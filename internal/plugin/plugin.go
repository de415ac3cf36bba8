package plugin

import (
	"context"
	"errors"
	"log/slog"

	"autounpack/internal/config"
	"autounpack/internal/store"
)

var (
	// ErrPluginNotFound is returned when a step names no registered plugin.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrConfigInvalid is returned when a step configuration fails to decode
	// or validate.
	ErrConfigInvalid = errors.New("invalid step configuration")
)

// Plugin is one executable pipeline step. Its effects are observable only
// through the contexts it saves, the files it touches, and the artifacts it
// writes under the info directory.
type Plugin interface {
	Execute(ctx context.Context) error
}

// Global carries run-wide settings shared by every step.
type Global struct {
	InfoDir  string
	CacheDir string
	SevenZip config.SevenZip
	RunID    string
}

// Deps is handed to every plugin constructor.
type Deps struct {
	Store    *store.Store
	Global   Global
	Registry *Registry
	Logger   *slog.Logger
}

// SaveKey is embedded by step configs that write a context.
type SaveKey struct {
	Key string `yaml:"save_key"`
}

// SaveTo returns the configured key or the default key.
func (k SaveKey) SaveTo() string {
	if k.Key == "" {
		return store.DefaultKey
	}
	return k.Key
}

// LoadKey is embedded by step configs that read a context.
type LoadKey struct {
	Key string `yaml:"load_key"`
}

// LoadFrom returns the configured key or the default key.
func (k LoadKey) LoadFrom() string {
	if k.Key == "" {
		return store.DefaultKey
	}
	return k.Key
}

// Defaulter is implemented by configs that need non-zero defaults before
// the step map is decoded over them.
type Defaulter interface {
	SetDefaults()
}

// Validator is implemented by configs with constraints beyond their types.
type Validator interface {
	Validate() error
}
