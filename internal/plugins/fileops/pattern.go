package fileops

import (
	"fmt"
	"regexp"
	"strings"
)

// Regex flags accepted by the re rename rule.
const (
	flagASCII      = 'a'
	flagIgnoreCase = 'i'
	flagUnicode    = 'u'
)

// Class shorthands widened to Unicode when the u flag is in effect. RE2
// limits \w, \d, and \s to ASCII.
var unicodeClasses = map[byte]string{
	'w': `\p{L}\p{N}_`,
	'd': `\p{Nd}`,
	's': `\s\p{Z}`,
}

// compilePattern builds a regexp from pattern and a flag string. Without a
// flag the class shorthands follow Unicode, and the a flag restricts them
// to ASCII.
func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	ascii, ignoreCase := false, false
	for _, f := range flags {
		switch f {
		case flagASCII:
			ascii = true
		case flagIgnoreCase:
			ignoreCase = true
		case flagUnicode:
		default:
			return nil, fmt.Errorf("invalid flag %q (allowed: a, i, u)", f)
		}
	}
	if !ascii {
		pattern = widenClasses(pattern)
	}
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// widenClasses rewrites \w, \d, and \s to their Unicode sets. Negated
// shorthands are only rewritten outside bracket expressions.
func widenClasses(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			next := pattern[i+1]
			i++
			lower := next | 0x20
			set, ok := unicodeClasses[lower]
			switch {
			case !ok:
				b.WriteByte('\\')
				b.WriteByte(next)
			case next == lower && inClass:
				b.WriteString(set)
			case next == lower:
				b.WriteString("[" + set + "]")
			case inClass:
				b.WriteByte('\\')
				b.WriteByte(next)
			default:
				b.WriteString("[^" + set + "]")
			}
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				b.WriteByte('^')
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				b.WriteByte(']')
				i++
			}
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// convertTemplate turns a replacement written with \1 or \g<name> group
// references into the ${1} form regexp.Expand understands. Literal dollar
// signs are escaped.
func convertTemplate(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		switch {
		case c == '$':
			b.WriteString("$$")
		case c == '\\' && i+1 < len(repl):
			next := repl[i+1]
			switch {
			case next >= '0' && next <= '9':
				j := i + 1
				for j < len(repl) && repl[j] >= '0' && repl[j] <= '9' && j-i <= 2 {
					j++
				}
				b.WriteString("${" + repl[i+1:j] + "}")
				i = j - 1
			case next == 'g' && i+2 < len(repl) && repl[i+2] == '<':
				end := strings.IndexByte(repl[i+3:], '>')
				if end < 0 {
					b.WriteByte(c)
					continue
				}
				b.WriteString("${" + repl[i+3:i+3+end] + "}")
				i = i + 3 + end
			case next == '\\':
				b.WriteByte('\\')
				i++
			case next == 'n':
				b.WriteByte('\n')
				i++
			case next == 't':
				b.WriteByte('\t')
				i++
			default:
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// replaceN replaces the first n matches of re in s with template, or all
// matches when n is 0.
func replaceN(re *regexp.Regexp, s, template string, n int) string {
	if n <= 0 {
		n = -1
	}
	matches := re.FindAllStringSubmatchIndex(s, n)
	if len(matches) == 0 {
		return s
	}
	var out []byte
	last := 0
	for _, m := range matches {
		out = append(out, s[last:m[0]]...)
		out = re.ExpandString(out, template, s, m)
		last = m[1]
	}
	out = append(out, s[last:]...)
	return string(out)
}
