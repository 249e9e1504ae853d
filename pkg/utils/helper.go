package utils

import "strconv"

// QueryInt parses a positive integer query value, falling back to def when
// the value is missing, malformed or below 1.
func QueryInt(value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return def
	}
	return n
}
