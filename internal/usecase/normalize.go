package usecase

import (
	"regexp"
	"sort"
	"strings"
)

// Name normalization underpins both catalog matching and order parsing.
// Two families exist: food-name normalization (aggressive, lowercased,
// punctuation-free) for comparisons, and order-item normalization
// (display-safe) for names that go back to the user.

// Package-level compiled regex patterns for performance
var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	sweetNSpicyPattern   = regexp.MustCompile(`\bsweet\s*'?n\s+spicy\b`)
	pieceAbbrevPattern   = regexp.MustCompile(`\b(?:pcs|pc)\b`)
	nonAlnumSpacePattern = regexp.MustCompile(`[^a-z0-9 ]+`)
	sizeWordPattern      = regexp.MustCompile(`\b(?:small|medium|large|xl|xs|regular)\b`)
	sizeWordAnyCase      = regexp.MustCompile(`(?i)\b(?:small|medium|large|xl|xs|regular)\b`)
	pieceWordPattern     = regexp.MustCompile(`\b(?:pieces|piece)\b`)
	classicWordPattern   = regexp.MustCompile(`\bclassic\b`)
	digitRunPattern      = regexp.MustCompile(`\d+`)
	whitespaceRunPattern = regexp.MustCompile(`\s+`)
)

// NormalizeFoodName produces the canonical comparison form of a menu or
// order item name: lowercased, the sweet'n-spicy brand spelling
// aliased, parentheticals dropped, piece abbreviations expanded,
// punctuation and size words removed. "Sweet'N Spicy Wings - Large",
// "Sweet N Spicy Wings" and "sweet spicy wings" collapse to the same
// string.
func NormalizeFoodName(name string) string {
	s := strings.ToLower(name)
	s = sweetNSpicyPattern.ReplaceAllString(s, "sweet spicy")
	s = parentheticalPattern.ReplaceAllString(s, " ")
	s = pieceAbbrevPattern.ReplaceAllString(s, "piece")
	s = nonAlnumSpacePattern.ReplaceAllString(s, " ")
	s = sizeWordPattern.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// NormalizeLoose relaxes the canonical form further for containment
// checks: "classic", piece words, and digit runs are dropped, so
// "classic wings 6 piece" and "wings" compare equal.
func NormalizeLoose(name string) string {
	s := NormalizeFoodName(name)
	s = classicWordPattern.ReplaceAllString(s, " ")
	s = pieceWordPattern.ReplaceAllString(s, " ")
	s = digitRunPattern.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// StripClassic removes the word "classic" from an already-normalized
// name. Vendors add and drop it between the menu and the receipt.
func StripClassic(normalized string) string {
	return collapseSpaces(classicWordPattern.ReplaceAllString(normalized, " "))
}

// TokenKey builds a word-order-independent signature of the loose form:
// tokens sorted and rejoined. "bbq chicken wrap" and "chicken wrap bbq"
// share a key.
func TokenKey(name string) string {
	tokens := strings.Fields(NormalizeLoose(name))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// NormalizeOrderItemName cleans an order line for display and storage:
// parentheticals and size words go, but case and punctuation stay.
func NormalizeOrderItemName(name string) string {
	s := parentheticalPattern.ReplaceAllString(name, " ")
	s = sizeWordAnyCase.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRunPattern.ReplaceAllString(s, " "))
}
