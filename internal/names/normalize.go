package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// generational suffixes recognized during normalization, keyed lowercase
// without trailing periods.
var suffixTokens = map[string]string{
	"jr":  "Jr",
	"sr":  "Sr",
	"ii":  "II",
	"iii": "III",
	"iv":  "IV",
	"v":   "V",
}

// countryCodes holds IOC-style federation codes observed leaking into name
// cells on the ranking site. Only trailing tokens found in this set are
// stripped; a bare all-caps check would also eat three-letter family names
// such as LEE or FOX.
var countryCodes = map[string]struct{}{
	"USA": {}, "CAN": {}, "MEX": {}, "GBR": {}, "IRL": {}, "AUS": {},
	"NZL": {}, "GER": {}, "FRA": {}, "ITA": {}, "ESP": {}, "POL": {},
	"RUS": {}, "UKR": {}, "BLR": {}, "KAZ": {}, "GEO": {}, "ARM": {},
	"CHN": {}, "JPN": {}, "KOR": {}, "PRK": {}, "THA": {}, "PHI": {},
	"IND": {}, "IRI": {}, "TUR": {}, "EGY": {}, "NGR": {}, "RSA": {},
	"BRA": {}, "ARG": {}, "COL": {}, "VEN": {}, "ECU": {}, "CUB": {},
	"DOM": {}, "PUR": {}, "GUA": {}, "PAN": {},
}

// Normalize converts a raw scraped name into canonical "Given Family [Suffix]"
// order. The transformation is deterministic: comma forms are split, leaked
// trailing country codes dropped, generational suffixes pulled out and
// re-appended, and all-caps family blocks ("SMITH Jane") moved behind the
// given name and recased.
func Normalize(raw string) string {
	value := Collapse(raw)
	if value == "" {
		return ""
	}

	var given, family []string
	if before, after, found := strings.Cut(value, ","); found {
		family = strings.Fields(before)
		given = strings.Fields(after)
	} else {
		given = strings.Fields(value)
	}

	given = stripTrailingCountryCode(given)
	family = stripTrailingCountryCode(family)

	var suffix string
	given, suffix = extractSuffix(given)
	if suffix == "" {
		family, suffix = extractSuffix(family)
	}

	if len(family) == 0 {
		given, family = splitFamilyBlock(given)
	}

	tokens := make([]string, 0, len(given)+len(family)+1)
	for _, tok := range given {
		tokens = append(tokens, recase(tok))
	}
	for _, tok := range family {
		tokens = append(tokens, recase(tok))
	}
	if suffix != "" {
		tokens = append(tokens, suffix)
	}
	return strings.Join(tokens, " ")
}

// Equal reports whether two already-normalized names refer to the same
// canonical form, ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(Collapse(a), Collapse(b))
}

// Collapse trims a string and squeezes interior whitespace runs to single
// spaces.
func Collapse(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func stripTrailingCountryCode(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	last := tokens[len(tokens)-1]
	if _, ok := countryCodes[last]; ok && isAllUpper(last) {
		return tokens[:len(tokens)-1]
	}
	return tokens
}

func extractSuffix(tokens []string) ([]string, string) {
	if len(tokens) < 2 {
		return tokens, ""
	}
	last := strings.TrimSuffix(tokens[len(tokens)-1], ".")
	if canonical, ok := suffixTokens[strings.ToLower(last)]; ok {
		return tokens[:len(tokens)-1], canonical
	}
	return tokens, ""
}

// splitFamilyBlock handles the "FAMILY Given" convention used by the ranking
// site for international meets. A leading run of all-caps tokens followed by
// at least one mixed-case token is treated as the family name and moved to
// the end. Names that are entirely all-caps or entirely mixed-case are left
// in source order.
func splitFamilyBlock(tokens []string) (given, family []string) {
	if len(tokens) < 2 {
		return tokens, nil
	}
	split := 0
	for split < len(tokens) && isAllUpper(tokens[split]) && len([]rune(tokens[split])) > 1 {
		split++
	}
	if split == 0 || split == len(tokens) {
		return tokens, nil
	}
	return tokens[split:], tokens[:split]
}

func recase(token string) string {
	if !isAllUpper(token) || len([]rune(token)) < 2 {
		return token
	}
	return titleCaser.String(strings.ToLower(token))
}

func isAllUpper(token string) bool {
	hasLetter := false
	for _, r := range token {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
