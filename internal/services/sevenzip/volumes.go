package sevenzip

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	numericSuffix = regexp.MustCompile(`^\.0+[1-9]\d*$`)
	rarPart       = regexp.MustCompile(`^(.+)\.part(\d+)\.rar$`)
)

// VolumePaths lists the members of the split archive path belongs to, in
// volume order, keeping only members that exist. The first element is the
// entry volume. A path that is not a volume yields itself.
//
// Recognised series: numeric suffixes (a.7z.001, a.7z.002, ...), zip spans
// (a.zip, a.z01, a.z02, ...), and rar parts (a.part1.rar, a.part2.rar, ...).
func VolumePaths(path, archiveType string, isVolume bool) []string {
	if !isVolume {
		return []string{path}
	}
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	kind := strings.ToLower(archiveType)

	var paths []string
	switch {
	case numericSuffix.MatchString(ext):
		width := len(ext) - 1
		paths = series(dir, func(i int) string { return fmt.Sprintf("%s.%0*d", stem, width, i) })
	case kind == "zip":
		paths = append([]string{filepath.Join(dir, stem+".zip")},
			series(dir, func(i int) string { return fmt.Sprintf("%s.z%02d", stem, i) })...)
	case strings.Contains(kind, "rar"):
		if m := rarPart.FindStringSubmatch(name); m != nil {
			width := len(m[2])
			paths = series(dir, func(i int) string { return fmt.Sprintf("%s.part%0*d.rar", m[1], width, i) })
		}
	}
	if len(paths) == 0 {
		paths = []string{path}
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if exists(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{path}
	}
	return out
}

// BaseName strips archive and volume suffixes from a file name:
// "a.7z.001" and "a.part1.rar" become "a", "b.zip" becomes "b".
func BaseName(path string) string {
	name := filepath.Base(path)
	if m := rarPart.FindStringSubmatch(name); m != nil {
		name = m[1]
	} else {
		if ext := filepath.Ext(name); numericSuffix.MatchString(ext) {
			name = strings.TrimSuffix(name, ext)
		}
		if ext := filepath.Ext(name); ext != "" && ext != name {
			name = strings.TrimSuffix(name, ext)
		}
	}
	if name == "" {
		return filepath.Base(path)
	}
	return name
}

func series(dir string, nameOf func(int) string) []string {
	var out []string
	for i := 1; ; i++ {
		p := filepath.Join(dir, nameOf(i))
		if !exists(p) {
			return out
		}
		out = append(out, p)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
