package fileops

import (
	"fmt"
	"os"
	"strings"

	"autounpack/internal/config"
	"autounpack/internal/plugin"
)

// Definitions returns every file step.
func Definitions() []plugin.Definition {
	return []plugin.Definition{
		ScanDefinition(),
		RenameDefinition(),
		TransferDefinition(),
		RemoveDefinition(),
		FlatDefinition(),
		EmptyDefinition(),
		LogDefinition(),
	}
}

// expandDir normalizes a required directory setting.
func expandDir(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	expanded, err := config.ExpandPath(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return expanded, nil
}

// requireDir fails unless dir exists and is a directory.
func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
