package core

// convert.go cleans raw cell text coming out of spreadsheets and CSV exports.

import (
	"strconv"
	"strings"
)

// CleanCell strips common export artifacts from a cell:
//   - surrounding whitespace, including non-breaking spaces
//   - the Excel text-formula wrapper ="..."
//   - a leading '=' or apostrophe used to force text
//   - surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))

	switch {
	case strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3:
		s = s[2 : len(s)-1]
	case strings.HasPrefix(s, "="), strings.HasPrefix(s, "'"):
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

// uniqueHeaders cleans header cells, names blank ones column_N and
// suffixes repeats with _2, _3 so every header can key a row map.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = CleanCell(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = h + "_" + strconv.Itoa(n)
		}
		out[i] = h
	}
	return out
}
