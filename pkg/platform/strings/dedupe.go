// Package strings provides text helpers shared by request normalisation.
package strings

import (
	"strings"
	"unicode"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a legacy joined list ("a|b" or "a, b") into trimmed,
// de-duplicated items.
//
//	SplitList("certidao | rg|certidao", "|")
//	// Returns: []string{"certidao", "rg"}
func SplitList(value string, separators string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	return DedupeAndTrim(parts)
}

// Clean replaces control characters with spaces, collapses whitespace runs and
// truncates to max runes. A non-positive max disables truncation.
func Clean(value string, max int) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)
	cleaned := strings.Join(strings.Fields(mapped), " ")
	if max > 0 {
		if runes := []rune(cleaned); len(runes) > max {
			cleaned = strings.TrimSpace(string(runes[:max]))
		}
	}
	return cleaned
}
