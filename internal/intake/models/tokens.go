package models

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	pstrings "lumine/pkg/platform/strings"
)

// ASCIIToken trims, strips diacritics and lower-cases a form token.
//
//	ASCIIToken(" Manhã ") // "manha"
func ASCIIToken(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(value))
	if err != nil {
		out = strings.TrimSpace(value)
	}
	return strings.ToLower(out)
}

func mapToken(value string, table map[string]string) string {
	token := ASCIIToken(value)
	if mapped, ok := table[token]; ok {
		return mapped
	}
	return token
}

// YesNo maps boolean-ish answers to "sim"/"nao". Unknown tokens pass through
// so validation can reject them.
func YesNo(value string) string {
	switch token := ASCIIToken(value); token {
	case "sim", "yes", "true", "1":
		return "sim"
	case "nao", "no", "false", "0":
		return "nao"
	default:
		return token
	}
}

var schoolShifts = map[string]string{"manha": "manha", "tarde": "tarde", "integral": "integral"}

func SchoolShift(value string) string { return mapToken(value, schoolShifts) }

var referralSources = map[string]string{
	"igreja":        "igreja",
	"escola":        "escola",
	"cras":          "CRAS",
	"indicacao":     "indicacao",
	"redes_sociais": "redes_sociais",
	"redessociais":  "redes_sociais",
	"outro":         "outro",
}

func ReferralSource(value string) string { return mapToken(value, referralSources) }

var priorities = map[string]string{"alta": "alta", "media": "media", "baixa": "baixa"}

func Priority(value string) string { return mapToken(value, priorities) }

// ImageConsent maps the legacy vocabulary; any form of "no" becomes empty.
func ImageConsent(value string) string {
	switch token := ASCIIToken(value); token {
	case "interno", "internal", "uso_interno":
		return "interno"
	case "comunicacao", "communication":
		return "comunicacao"
	case "nao", "nenhum", "none":
		return ""
	default:
		return token
	}
}

var classGroups = map[string]string{
	"pre_alfabetizacao": "pre_alfabetizacao",
	"alfabetizacao":     "alfabetizacao",
	"fundamental_1":     "fundamental_1",
	"fundamental_2":     "fundamental_2",
}

func ClassGroup(value string) string { return mapToken(value, classGroups) }

// DocumentKey turns a free-text document label into a snake_case key.
func DocumentKey(value string) string {
	return strings.Join(strings.Fields(ASCIIToken(value)), "_")
}

// Documents normalises a list, or a "|" or "," joined string, into unique keys.
func Documents(items []string) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, DocumentKey(item))
	}
	return pstrings.DedupeAndTrim(keys)
}

// Bool coerces the boolean spellings forms produce. ok is false for anything
// unrecognised, including absent values.
func Bool(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch ASCIIToken(t) {
		case "true", "1", "sim", "yes":
			return true, true
		case "false", "0", "nao", "no":
			return false, true
		}
	case float64:
		if t == 1 {
			return true, true
		}
		if t == 0 {
			return false, true
		}
	}
	return false, false
}
