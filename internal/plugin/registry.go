package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"autounpack/internal/logging"
)

// Registry maps step names to plugin definitions.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		defs:   make(map[string]Definition),
		logger: logging.NewComponentLogger(logger, "registry"),
	}
}

// Register adds definitions. A name that is already registered is replaced
// and a warning is logged.
func (r *Registry) Register(defs ...Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if _, exists := r.defs[name]; exists {
			logging.WarnWithContext(r.logger, "plugin registration replaced", "plugin_shadowed",
				logging.String("plugin", name),
				logging.String(logging.FieldImpact, "later registration handles this step name"),
				logging.String(logging.FieldErrorHint, "rename the custom plugin if shadowing was unintended"),
			)
		}
		def.Name = name
		r.defs[name] = def
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Definitions returns every registered definition sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve constructs the plugin for one raw step map.
func (r *Registry) Resolve(raw map[string]any, deps Deps) (Plugin, error) {
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: step has no name", ErrConfigInvalid)
	}
	def, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	if deps.Registry == nil {
		deps.Registry = r
	}
	deps.Logger = logging.NewComponentLogger(deps.Logger, name)
	return def.build(raw, deps)
}
