package archive

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadPasswords reads the candidate list from path. Lines up to and
// including the first line made only of dashes are a header and skipped.
// Blank lines are dropped and the empty password is always first.
func LoadPasswords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open password file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read password file: %w", err)
	}
	return ParsePasswords(lines), nil
}

// ParsePasswords applies the password file rules to already split lines.
func ParsePasswords(lines []string) []string {
	start := 0
	for i, line := range lines {
		if isDashRule(line) {
			start = i + 1
			break
		}
	}
	out := []string{""}
	for _, line := range lines[start:] {
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isDashRule(line string) bool {
	return line != "" && strings.Trim(line, "-") == ""
}
