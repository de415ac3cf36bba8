package sevenzip

import "strings"

// Level is the verdict on one invocation.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelSuccess
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	}
	return "error"
}

// Acceptable reports whether the invocation counts as done.
func (l Level) Acceptable() bool { return l != LevelError }

// Processing modes.
const (
	ModeStrict = "strict"
	ModeGreedy = "greedy"
)

// Recoverable describes a failure that greedy processing downgrades to a
// warning. ExitCode and Message must both match; ArchiveType and
// Characteristic add optional conditions on the listed attributes.
type Recoverable struct {
	ExitCode       int    `yaml:"code" json:"code"`
	Message        string `yaml:"message" json:"message"`
	ArchiveType    string `yaml:"archive_type" json:"archive_type,omitempty"`
	Characteristic string `yaml:"characteristic" json:"characteristic,omitempty"`
}

// DefaultRecoverable lists the known recoverable failures: 7-Zip reports a
// header error on large encrypted RAR archives that carry a recovery record
// even though their contents are intact.
func DefaultRecoverable() []Recoverable {
	return []Recoverable{{
		ExitCode:       int(CodeFatal),
		Message:        "Headers Error in encrypted archive.",
		ArchiveType:    "Rar",
		Characteristic: "Recovery",
	}}
}

// Policy turns results into levels.
type Policy struct {
	Greedy      bool
	Recoverable []Recoverable
}

// NewPolicy builds a policy for a processing mode.
func NewPolicy(mode string, recoverable []Recoverable) Policy {
	return Policy{Greedy: strings.EqualFold(mode, ModeGreedy), Recoverable: recoverable}
}

// Level classifies r. Strict processing accepts only a clean exit.
func (p Policy) Level(r *Result) Level {
	if r == nil {
		return LevelError
	}
	if r.Code == CodeNoError {
		return LevelSuccess
	}
	if !p.Greedy {
		return LevelError
	}
	for _, rule := range p.Recoverable {
		if rule.matches(r) {
			return LevelWarning
		}
	}
	return LevelError
}

func (rule Recoverable) matches(r *Result) bool {
	if r.ExitCode != rule.ExitCode {
		return false
	}
	if rule.Message != "" && !strings.Contains(r.Message, rule.Message) {
		return false
	}
	if rule.ArchiveType != "" && !strings.EqualFold(r.Attrs.Type(), rule.ArchiveType) {
		return false
	}
	if rule.Characteristic != "" && !strings.Contains(r.Attrs.Characteristics(), rule.Characteristic) {
		return false
	}
	return true
}
