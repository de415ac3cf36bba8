package sevenzip

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrToolFailed marks an invocation the policy did not accept.
var ErrToolFailed = errors.New("7-zip invocation failed")

// ToolError carries the classified outcome of a failed invocation.
type ToolError struct {
	Op      Op
	Path    string
	Code    Code
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("7-zip %s %s: %s (%s)", e.Op.Name(), e.Path, e.Code, e.Code.Description())
}

func (e *ToolError) Unwrap() error { return ErrToolFailed }

// Attrs holds the "key = value" lines of a listing. Keys are lower case with
// spaces replaced by underscores; a repeated key keeps its last value.
type Attrs map[string]string

// Type returns the archive type, e.g. "7z", "Rar5", "zip".
func (a Attrs) Type() string { return a["type"] }

// Characteristics returns the characteristics line, e.g. "Recovery Encrypted".
func (a Attrs) Characteristics() string { return a["characteristics"] }

// Volumes returns the reported volume count.
func (a Attrs) Volumes() (int, bool) {
	n, err := strconv.Atoi(a["volumes"])
	return n, err == nil
}

// Clone returns a copy of a.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Entry is one row of the file table.
type Entry struct {
	DateTime   string `json:"date_time,omitempty"`
	Attr       string `json:"attr"`
	Size       *int64 `json:"size,omitempty"`
	Compressed *int64 `json:"compressed,omitempty"`
	Name       string `json:"name"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return strings.Contains(e.Attr, "D") }

// Result is the parsed outcome of one invocation.
type Result struct {
	Op       Op
	Path     string
	Password string
	ExitCode int
	Code     Code
	Message  string
	Attrs    Attrs
	IsVolume bool
	Entries  []Entry
}

func newResult(op Op, path, password string, exitCode int, stdout, stderr []string) *Result {
	message := strings.Join(stdout, "\n")
	if len(stderr) > 0 {
		message = strings.TrimLeft(message+"\n"+strings.Join(stderr, "\n"), "\n")
	}
	attrs, isVolume := ParseAttrs(stdout)
	return &Result{
		Op:       op,
		Path:     path,
		Password: password,
		ExitCode: exitCode,
		Code:     Classify(exitCode, message),
		Message:  message,
		Attrs:    attrs,
		IsVolume: isVolume,
		Entries:  ParseEntries(stdout),
	}
}

// Err returns a *ToolError for a non-clean result and nil otherwise.
func (r *Result) Err() error {
	if r.Code == CodeNoError {
		return nil
	}
	return &ToolError{Op: r.Op, Path: r.Path, Code: r.Code, Message: r.Message}
}

// VolumePaths returns the split-archive members of r present on disk.
func (r *Result) VolumePaths() []string {
	return VolumePaths(r.Path, r.Attrs.Type(), r.IsVolume)
}

// MainVolumePath returns the entry volume of r.
func (r *Result) MainVolumePath() string {
	if paths := r.VolumePaths(); len(paths) > 0 {
		return paths[0]
	}
	return r.Path
}

var attrPattern = regexp.MustCompile(`^([a-zA-Z ]+)\s+=\s+(.+)`)

// ParseAttrs collects attribute lines and reports whether they describe a
// volume of a split archive.
func ParseAttrs(lines []string) (Attrs, bool) {
	attrs := Attrs{}
	isVolume := false
	for _, line := range lines {
		m := attrPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_"))
		value := strings.TrimSpace(m[2])
		switch key {
		case "path":
			continue
		case "type":
			if strings.EqualFold(value, "split") {
				isVolume = true
				continue
			}
		case "multivolume":
			if value == "+" {
				isVolume = true
			}
		case "volumes":
			if n, err := strconv.Atoi(value); err == nil && n > 1 {
				isVolume = true
			}
		case "volume_index":
			isVolume = true
		}
		attrs[key] = value
	}
	return attrs, isVolume
}

var (
	ruleRow  = regexp.MustCompile(`^\s*-+(\s+-+){4,}\s*$`)
	ruleRuns = regexp.MustCompile(`-{4,}`)
)

// ParseEntries reads the first file table: the rows between a rule line of
// at least five dash runs and the next rule line. Column starts come from the
// dash runs of the opening rule, so locale-dependent widths parse the same.
func ParseEntries(lines []string) []Entry {
	start := -1
	for i, line := range lines {
		if ruleRow.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	cols := runeOffsets(lines[start], ruleRuns.FindAllStringIndex(lines[start], -1))
	if len(cols) < 5 {
		return nil
	}

	var entries []Entry
	for _, line := range lines[start+1:] {
		if ruleRow.MatchString(line) {
			return entries
		}
		row := []rune(line)
		if len(row) < cols[4] {
			continue
		}
		entries = append(entries, Entry{
			DateTime:   field(row, cols[0], cols[1]),
			Attr:       strings.ReplaceAll(field(row, cols[1], cols[2]), ".", ""),
			Size:       parseSize(field(row, cols[2], cols[3])),
			Compressed: parseSize(field(row, cols[3], cols[4])),
			Name:       strings.TrimSpace(string(row[cols[4]:])),
		})
	}
	// No closing rule: the table was cut short and is discarded.
	return nil
}

func runeOffsets(line string, spans [][]int) []int {
	out := make([]int, 0, len(spans))
	for _, span := range spans {
		out = append(out, len([]rune(line[:span[0]])))
	}
	return out
}

func field(row []rune, from, to int) string {
	if from > len(row) {
		return ""
	}
	if to > len(row) {
		to = len(row)
	}
	return strings.TrimSpace(string(row[from:to]))
}

func parseSize(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
