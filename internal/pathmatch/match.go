// Package pathmatch evaluates glob patterns against file references.
//
// Paths are compared with forward slashes and directories carry a trailing
// "/" so patterns such as "**/*/" select only directories. A pattern matches
// when it matches either the absolute path or the path relative to the
// reference's search root. Matching is case-sensitive.
package pathmatch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"autounpack/internal/store"
)

// DefaultIncludes selects everything below a search root.
var DefaultIncludes = []string{"**/*"}

// Validate reports the first malformed pattern.
func Validate(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError describes an unparsable glob.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid glob pattern " + `"` + e.Pattern + `"`
}

// Candidates returns the strings a pattern is tested against for ref.
func Candidates(ref store.FileRef, isDir bool) []string {
	abs := filepath.ToSlash(ref.Path)
	rel := filepath.ToSlash(ref.RelativePath())
	if isDir {
		abs = strings.TrimSuffix(abs, "/") + "/"
		rel = strings.TrimSuffix(rel, "/") + "/"
	}
	if abs == rel {
		return []string{abs}
	}
	return []string{abs, rel}
}

// MatchAny reports whether any pattern matches ref.
func MatchAny(patterns []string, ref store.FileRef) bool {
	if len(patterns) == 0 {
		return false
	}
	candidates := Candidates(ref, isDir(ref.Path))
	for _, p := range patterns {
		p = filepath.ToSlash(p)
		for _, c := range candidates {
			if ok, _ := doublestar.Match(p, c); ok {
				return true
			}
		}
	}
	return false
}

// Select keeps refs matching at least one include and no exclude. An empty
// include list selects everything.
func Select(refs []store.FileRef, includes, excludes []string) []store.FileRef {
	out := make([]store.FileRef, 0, len(refs))
	for _, ref := range refs {
		if len(includes) > 0 && !MatchAny(includes, ref) {
			continue
		}
		if MatchAny(excludes, ref) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
