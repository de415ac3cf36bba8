package store

import (
	"path/filepath"
	"strings"
)

// FileRef identifies one file or directory along with the root it was
// discovered under. FileRef is a comparable value; two refs are equal when
// both Path and SearchRoot match.
type FileRef struct {
	Path       string `json:"path"`
	SearchRoot string `json:"search_path"`
}

// NewFileRef builds a FileRef with both paths made absolute and cleaned.
func NewFileRef(path, searchRoot string) FileRef {
	return FileRef{Path: absClean(path), SearchRoot: absClean(searchRoot)}
}

// RelativePath returns Path relative to SearchRoot. When the path does not
// live below the root the base name is returned.
func (f FileRef) RelativePath() string {
	if f.SearchRoot == "" {
		return filepath.Base(f.Path)
	}
	rel, err := filepath.Rel(f.SearchRoot, f.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(f.Path)
	}
	return rel
}

// Name returns the final path element.
func (f FileRef) Name() string {
	return filepath.Base(f.Path)
}

// Dir returns the parent directory of Path.
func (f FileRef) Dir() string {
	return filepath.Dir(f.Path)
}

// WithPath returns a copy of f pointing at path under the same root.
func (f FileRef) WithPath(path string) FileRef {
	return FileRef{Path: absClean(path), SearchRoot: f.SearchRoot}
}

func absClean(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
