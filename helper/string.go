package helper

import "strings"

// SplitLines splits a string into lines by '\r\n' or '\n'.
func SplitLines(s string) []string {
	if strings.Contains(s, "\r\n") {
		return strings.Split(s, "\r\n")
	}

	return strings.Split(s, "\n")
}

// LastLines returns the trailing n lines, sharing the backing array.
func LastLines(lines []string, n int) []string {
	if n < 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
