package preflight

import (
	"strings"

	"autounpack/internal/config"
)

// SevenZipCheck names the archiver binary check.
const SevenZipCheck = "7-Zip"

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg. The archiver is only
// required when some step, at any nesting depth, is an archive step.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Info directory", cfg.Paths.InfoDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
	}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if UsesStep(cfg.Flow.Steps, "archive") {
		results = append(results, CheckBinary(SevenZipCheck, cfg.SevenZip.Binary))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// UsesStep reports whether name appears in steps or in any nested "steps"
// list.
func UsesStep(steps []map[string]any, name string) bool {
	for _, step := range steps {
		if stepUses(step, name) {
			return true
		}
	}
	return false
}

func stepUses(step map[string]any, name string) bool {
	if n, _ := step["name"].(string); strings.TrimSpace(n) == name {
		return true
	}
	switch nested := step["steps"].(type) {
	case []map[string]any:
		return UsesStep(nested, name)
	case []any:
		for _, item := range nested {
			if m, ok := item.(map[string]any); ok && stepUses(m, name) {
				return true
			}
		}
	}
	return false
}
