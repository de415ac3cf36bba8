// Package artifact writes JSON documents into the info directory without
// ever replacing an earlier one.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"autounpack/internal/fileutil"
)

var mu sync.Mutex

// WriteJSON stores v as indented JSON at <dir>/<name>.json. When that file
// exists the name gets a "(n)" suffix. It returns the path written.
func WriteJSON(dir, name string, v any) (string, error) {
	dir = strings.TrimSpace(dir)
	name = strings.TrimSpace(name)
	if dir == "" {
		return "", errors.New("artifact: directory is empty")
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("artifact: invalid name %q", name)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifact: marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create directory: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	target := fileutil.NextAvailablePath(filepath.Join(dir, name+".json"), false)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("artifact: write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("artifact: rename temp file: %w", err)
	}
	return target, nil
}
