package control

import "autounpack/internal/plugin"

// Definitions returns every control step.
func Definitions() []plugin.Definition {
	return []plugin.Definition{
		FilterDefinition(),
		SwitchDefinition(),
		MergeDefinition(),
		LoopDefinition(),
	}
}
