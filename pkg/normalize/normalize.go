// Package normalize provides place-name canonicalization and matching.
//
// Source APIs label monitoring stations with locale-dependent spellings
// ("München", "Kraków", "Bucureşti") while ingestion targets are configured
// with English names. Matching is done on a canonical form: diacritics
// stripped, lowercased, trimmed.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripper decomposes to NFD, removes combining marks, and recomposes.
var stripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// folder maps the European letters that carry no canonical decomposition,
// so mark stripping alone cannot fold them (Łódź, København, Straße).
var folder = strings.NewReplacer(
	"ł", "l",
	"ø", "o",
	"æ", "ae",
	"œ", "oe",
	"ß", "ss",
	"đ", "d",
	"ð", "d",
	"þ", "th",
)

// Normalize returns the canonical form of a place name: canonical
// decomposition with combining marks removed, lowercased, and trimmed.
// Normalize is idempotent and returns "" for empty input.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	stripped, _, err := transform.String(stripper, text)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the raw text.
		stripped = text
	}
	return strings.TrimSpace(folder.Replace(strings.ToLower(stripped)))
}

// Slug returns the canonical form with spaces replaced by hyphens,
// suitable for object-storage path segments.
func Slug(city string) string {
	return strings.ReplaceAll(Normalize(city), " ", "-")
}

// Matcher matches localities against target names using an alias table.
// The table is keyed by the normalized target name; values are the
// normalized locale variants that should be accepted for it.
type Matcher struct {
	aliases map[string][]string
}

// NewMatcher builds a Matcher from an alias table. Keys and values are
// normalized on construction, so callers may pass native spellings.
func NewMatcher(aliases map[string][]string) *Matcher {
	normalized := make(map[string][]string, len(aliases))
	for target, variants := range aliases {
		key := Normalize(target)
		for _, v := range variants {
			normalized[key] = append(normalized[key], Normalize(v))
		}
	}
	return &Matcher{aliases: normalized}
}

// Matches reports whether locality refers to target: either the
// normalized forms are equal, or the normalized locality is a registered
// alias of the normalized target. There is no substring matching.
func (m *Matcher) Matches(locality, target string) bool {
	loc := Normalize(locality)
	tgt := Normalize(target)
	if loc == tgt {
		return true
	}
	for _, alias := range m.aliases[tgt] {
		if loc == alias {
			return true
		}
	}
	return false
}

// DefaultMatcher matches against the built-in EU alias table.
var DefaultMatcher = NewMatcher(defaultAliases)

// Matches reports whether locality refers to target using the built-in
// EU alias table.
func Matches(locality, target string) bool {
	return DefaultMatcher.Matches(locality, target)
}

// defaultAliases maps configured English city names to the native
// spellings used by source APIs. Diacritic-only variants (Kraków,
// Malmö) need no entry; Normalize already folds those.
var defaultAliases = map[string][]string{
	"munich":     {"münchen", "muenchen"},
	"cologne":    {"köln", "koeln"},
	"nuremberg":  {"nürnberg", "nuernberg"},
	"vienna":     {"wien"},
	"prague":     {"praha"},
	"warsaw":     {"warszawa"},
	"rome":       {"roma"},
	"milan":      {"milano"},
	"naples":     {"napoli"},
	"turin":      {"torino"},
	"florence":   {"firenze"},
	"venice":     {"venezia"},
	"athens":     {"athina", "αθήνα"},
	"thessaloniki": {"θεσσαλονίκη"},
	"lisbon":     {"lisboa"},
	"seville":    {"sevilla"},
	"bucharest":  {"bucurești", "bucuresti"},
	"copenhagen": {"københavn", "kobenhavn"},
	"gothenburg": {"göteborg", "goteborg"},
	"the hague":  {"den haag", "'s-gravenhage", "s-gravenhage"},
	"brussels":   {"bruxelles", "brussel"},
	"antwerp":    {"antwerpen"},
	"ghent":      {"gent"},
	"luxembourg": {"luxembourg city", "ville de luxembourg"},
	"nicosia":    {"lefkosia", "λευκωσία"},
	"helsinki":   {"helsingfors"},
}
