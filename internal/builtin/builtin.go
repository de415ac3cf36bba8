// Package builtin assembles the steps that ship with autounpack.
package builtin

import (
	"log/slog"

	"autounpack/internal/archive"
	"autounpack/internal/plugin"
	"autounpack/internal/plugins/control"
	"autounpack/internal/plugins/fileops"
)

// Definitions returns every built-in step. archiveOpts configure the
// archive step.
func Definitions(archiveOpts ...archive.Option) []plugin.Definition {
	defs := control.Definitions()
	defs = append(defs, fileops.Definitions()...)
	defs = append(defs, archive.Definition(archiveOpts...))
	return defs
}

// NewRegistry returns a registry holding the built-in steps.
func NewRegistry(logger *slog.Logger, archiveOpts ...archive.Option) *plugin.Registry {
	reg := plugin.NewRegistry(logger)
	reg.Register(Definitions(archiveOpts...)...)
	return reg
}
