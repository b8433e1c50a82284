package core

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Casers keep state between calls, so each use builds its own.
func titleCase(s string) string { return cases.Title(language.Spanish).String(s) }
func upperCase(s string) string { return cases.Upper(language.Spanish).String(s) }
func lowerCase(s string) string { return cases.Lower(language.Spanish).String(s) }

// stripMarks removes combining accents, turning "Cédula" into "Cedula".
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// foldKey lower-cases, strips accents and collapses punctuation and spacing
// so "  N° de Cédula " and "n de cedula" compare equal.
func foldKey(s string) string {
	s = lowerCase(stripMarks(s))
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// normalizeName capitalizes each word: "maria  DE los angeles" becomes
// "Maria De Los Angeles".
func normalizeName(s string) string {
	return titleCase(strings.Join(strings.Fields(s), " "))
}

func normalizeUpper(s string) string {
	return upperCase(strings.Join(strings.Fields(s), " "))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeNationalID keeps only digits. Values without any digit are
// returned trimmed so validation can report them.
func normalizeNationalID(s string) string {
	s = strings.TrimSpace(s)
	if d := digitsOnly(s); d != "" {
		return d
	}
	return s
}

// normalizePhone drops the usual separators and a +57 prefix.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+57")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '/':
			return -1
		}
		return r
	}, s)
}

// parseIntOrZero accepts "12" and spreadsheet style "12.0", falling back to
// zero.
func parseIntOrZero(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// matchEnum returns the allowed literal equal to s.
func matchEnum(s string, allowed []string) (string, bool) {
	for _, v := range allowed {
		if s == v {
			return v, true
		}
	}
	return "", false
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeValue applies the normalizer for kind to an already trimmed,
// non-empty value.
func normalizeValue(kind FieldKind, s string) string {
	switch kind {
	case KindName:
		return normalizeName(s)
	case KindUpper:
		return normalizeUpper(s)
	case KindNationalID:
		return normalizeNationalID(s)
	case KindPhone:
		return normalizePhone(s)
	case KindEmail:
		return normalizeEmail(s)
	}
	return s
}
