package common

import (
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches a numeric token as it appears in analytics UI text:
// optional thousands separators, optional decimal part, optional K/M suffix,
// optional percent sign. Examples: "1,234", "5.2%", "12.5K", "1.2M".
var numberPattern = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*([KkMm]?)\s*(%?)`)

// NormalizeNumber parses a numeric token from UI text into a canonical
// value and unit. Thousands separators are stripped, K/M suffixes are
// expanded, and a trailing percent sign yields unit "%". Returns ok=false
// when the token carries no number.
func NormalizeNumber(token string) (value float64, unit string, ok bool) {
	m := numberPattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return 0, "", false
	}

	raw := strings.ReplaceAll(m[1], ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, "", false
	}

	switch strings.ToUpper(m[2]) {
	case "K":
		value *= 1_000
	case "M":
		value *= 1_000_000
	}

	if m[3] == "%" {
		unit = "%"
	} else {
		unit = "count"
	}
	return value, unit, true
}

// FindNumber reports the first numeric token in a line of text, with the
// remainder of the line before the number (typically the label).
func FindNumber(line string) (label string, value float64, unit string, ok bool) {
	loc := numberPattern.FindStringIndex(line)
	if loc == nil {
		return "", 0, "", false
	}
	value, unit, ok = NormalizeNumber(line[loc[0]:loc[1]])
	if !ok {
		return "", 0, "", false
	}
	label = strings.Trim(line[:loc[0]], " \t:-–|")
	return label, value, unit, true
}
