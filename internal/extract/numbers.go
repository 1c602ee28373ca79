package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	decimalPattern      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	integerPattern      = regexp.MustCompile(`\d+`)
	numericTokenPattern = regexp.MustCompile(`\d+(?:/\d+)?(?:\.\d+)?`)
	nonAlnumPattern     = regexp.MustCompile(`[^a-z0-9]+`)
)

// ExtractNumber coerces a raw JSON/HTML/PDF value to a whole number.
// Numbers are rounded to the nearest integer; strings have commas stripped
// and the first decimal run parsed. Returns nil when no number is present —
// callers must treat nil as "unknown", never as zero.
func ExtractNumber(value interface{}) *int {
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		n := v
		return &n
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(math.Round(v))
		return &n
	case string:
		cleaned := strings.ReplaceAll(v, ",", "")
		match := decimalPattern.FindString(cleaned)
		if match == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return nil
		}
		n := int(math.Round(parsed))
		return &n
	default:
		return nil
	}
}

// NumericToken is one numeric run found in a text line, with its byte
// offset so callers can split the line around it.
type NumericToken struct {
	Text  string
	Index int
}

// ParseNumericTokens finds every numeric token in a line, including
// fraction forms like "3/4" that nutrition PDFs use for saturated fat.
func ParseNumericTokens(line string) []NumericToken {
	matches := numericTokenPattern.FindAllStringIndex(line, -1)
	tokens := make([]NumericToken, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, NumericToken{Text: line[m[0]:m[1]], Index: m[0]})
	}
	return tokens
}

// TokenToNumber converts a numeric token to a whole number, evaluating
// fraction forms. Returns nil for empty or unparseable tokens.
func TokenToNumber(text string) *int {
	if text == "" {
		return nil
	}
	if num, denom, ok := strings.Cut(text, "/"); ok && num != "" && denom != "" {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(denom, 64)
		if errN == nil && errD == nil && d != 0 {
			v := int(math.Round(n / d))
			return &v
		}
	}
	return ExtractNumber(text)
}

// ExtractIntegers returns every integer token in a string, in order.
// Used by the matcher to compare counts like "6 pc" vs "10 pc".
func ExtractIntegers(s string) []int {
	matches := integerPattern.FindAllString(s, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// NormalizeKey lowercases a value and squashes every non-alphanumeric run,
// producing a stable key for alias lookups and dedup ("Total Fat (g)" and
// "total_fat_g" collide).
func NormalizeKey(value string) string {
	return nonAlnumPattern.ReplaceAllString(strings.ToLower(value), "")
}

// KeywordText lowercases a value and turns non-alphanumeric runs into
// single spaces, keeping word boundaries for keyword scans.
func KeywordText(value string) string {
	return strings.TrimSpace(nonAlnumPattern.ReplaceAllString(strings.ToLower(value), " "))
}
