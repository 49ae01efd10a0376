package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// countPattern matches the first run of digits, allowing comma and space
// thousands separators between digits.
var countPattern = regexp.MustCompile(`\d(?:[\d, ]*\d)?`)

var spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// ParseCount extracts an integer such as a follower count from display text
// like "12,345 followers". It reports false when no digits are present or
// the number does not fit in an int64.
func ParseCount(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	normalized := spaceReplacer.Replace(raw)
	run := countPattern.FindString(normalized)
	if run == "" {
		return 0, false
	}
	digits := strings.NewReplacer(",", "", " ", "").Replace(run)
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
