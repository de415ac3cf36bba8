package control

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"autounpack/internal/pathmatch"
	"autounpack/internal/store"
)

// Rule narrows a list of file references.
type Rule interface {
	Apply(refs []store.FileRef) ([]store.FileRef, error)
	String() string
}

// RuleConfig is the decoded form of one predicate rule. Mode selects which
// of the remaining fields apply.
type RuleConfig struct {
	Mode     string   `yaml:"mode"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Size     *float64 `yaml:"size"`
	Unit     string   `yaml:"unit"`
	Operator string   `yaml:"operator"`
	Time     string   `yaml:"time"`
}

const (
	ruleGlob  = "glob"
	ruleSize  = "size"
	ruleCTime = "ctime"
	ruleMTime = "mtime"
)

var unitBytes = map[string]float64{
	"b":  1,
	"kb": 1 << 10,
	"mb": 1 << 20,
	"gb": 1 << 30,
	"tb": 1 << 40,
}

var validOperators = map[string]struct{}{
	"<": {}, ">": {}, "<=": {}, ">=": {}, "==": {}, "!=": {},
}

// Compile validates the configuration and builds the rule.
func (c RuleConfig) Compile() (Rule, error) {
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	if mode == "" {
		mode = ruleGlob
	}
	operator := strings.TrimSpace(c.Operator)
	if operator == "" {
		operator = ">="
	}
	if mode != ruleGlob {
		if _, ok := validOperators[operator]; !ok {
			return nil, fmt.Errorf("rule %s: unsupported operator %q", mode, c.Operator)
		}
	}

	switch mode {
	case ruleGlob:
		return newGlobRule(c.Includes, c.Excludes)
	case ruleSize:
		if c.Size == nil {
			return nil, errors.New("rule size: size is required")
		}
		if *c.Size < 0 {
			return nil, fmt.Errorf("rule size: size must be >= 0, got %v", *c.Size)
		}
		unit := strings.ToLower(strings.TrimSpace(c.Unit))
		if unit == "" {
			unit = "mb"
		}
		factor, ok := unitBytes[unit]
		if !ok {
			return nil, fmt.Errorf("rule size: unsupported unit %q", c.Unit)
		}
		return sizeRule{operator: operator, bytes: *c.Size * factor}, nil
	case ruleCTime, ruleMTime:
		if strings.TrimSpace(c.Time) == "" {
			return nil, fmt.Errorf("rule %s: time is required", mode)
		}
		threshold, err := time.Parse(time.RFC3339, strings.TrimSpace(c.Time))
		if err != nil {
			return nil, fmt.Errorf("rule %s: time must be RFC3339: %w", mode, err)
		}
		stamp := modTime
		if mode == ruleCTime {
			stamp = changeTime
		}
		return timeRule{mode: mode, operator: operator, threshold: threshold, stamp: stamp}, nil
	default:
		return nil, fmt.Errorf("unsupported rule mode %q", c.Mode)
	}
}

func compileRules(configs []RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for i, cfg := range configs {
		rule, err := cfg.Compile()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func applyRules(rules []Rule, refs []store.FileRef) ([]store.FileRef, error) {
	var err error
	for _, rule := range rules {
		if refs, err = rule.Apply(refs); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

type globRule struct {
	includes []string
	excludes []string
}

func newGlobRule(includes, excludes []string) (globRule, error) {
	if includes == nil {
		includes = pathmatch.DefaultIncludes
	}
	if err := pathmatch.Validate(includes); err != nil {
		return globRule{}, fmt.Errorf("rule glob: %w", err)
	}
	if err := pathmatch.Validate(excludes); err != nil {
		return globRule{}, fmt.Errorf("rule glob: %w", err)
	}
	return globRule{includes: includes, excludes: excludes}, nil
}

func (r globRule) Apply(refs []store.FileRef) ([]store.FileRef, error) {
	out := make([]store.FileRef, 0, len(refs))
	for _, ref := range refs {
		if pathmatch.MatchAny(r.includes, ref) && !pathmatch.MatchAny(r.excludes, ref) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r globRule) String() string {
	return fmt.Sprintf("glob includes=%v excludes=%v", r.includes, r.excludes)
}

type sizeRule struct {
	operator string
	bytes    float64
}

func (r sizeRule) Apply(refs []store.FileRef) ([]store.FileRef, error) {
	out := make([]store.FileRef, 0, len(refs))
	for _, ref := range refs {
		info, err := os.Stat(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("rule size: %w", err)
		}
		if compare(r.operator, float64(info.Size()), r.bytes) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r sizeRule) String() string {
	return fmt.Sprintf("size %s %s", r.operator, humanize.IBytes(uint64(r.bytes)))
}

type timeRule struct {
	mode      string
	operator  string
	threshold time.Time
	stamp     func(path string) (time.Time, error)
}

func (r timeRule) Apply(refs []store.FileRef) ([]store.FileRef, error) {
	out := make([]store.FileRef, 0, len(refs))
	for _, ref := range refs {
		ts, err := r.stamp(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.mode, err)
		}
		if compare(r.operator, ts.UnixNano(), r.threshold.UnixNano()) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r timeRule) String() string {
	return fmt.Sprintf("%s %s %s", r.mode, r.operator, r.threshold.Format(time.RFC3339))
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func compare[T cmp.Ordered](operator string, left, right T) bool {
	switch operator {
	case "<":
		return left < right
	case ">":
		return left > right
	case "<=":
		return left <= right
	case ">=":
		return left >= right
	case "==":
		return left == right
	case "!=":
		return left != right
	}
	return false
}
