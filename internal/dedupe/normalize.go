// Package dedupe decides whether two candidate records denote the same
// real-world business.
package dedupe

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	digitsRe     = regexp.MustCompile(`\D+`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)

	// floorUnitRe strips floor/unit/office tokens from addresses, in both
	// Spanish and English conventions ("piso 3", "dto b", "local 12",
	// "of. 4", "2do piso", "unit 5", "#12").
	floorUnitRe = regexp.MustCompile(`\b(piso|dpto|dto|depto|departamento|local|oficina|of|unidad|unit|suite|ste|apt|floor|fl)\b\.?\s*\w*|#\s*\w+|\b\d+(st|nd|rd|th|er|do|ro|to)\s+(floor|piso)\b`)
)

// addressAbbrevs collapses common street-type markers to one canonical token.
var addressAbbrevs = map[string]string{
	"avenida":   "av",
	"avda":      "av",
	"ave":       "av",
	"avenue":    "av",
	"calle":     "c",
	"cll":       "c",
	"street":    "st",
	"boulevard": "blvd",
	"bulevar":   "blvd",
	"carrera":   "cra",
	"diagonal":  "diag",
	"pasaje":    "pje",
	"road":      "rd",
	"drive":     "dr",
}

// stripDiacritics removes combining marks so "café" and "cafe" compare equal.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizePhone reduces a phone to digits only. Returns "" when fewer than
// 8 digits survive, which is too short to compare reliably.
func NormalizePhone(phone string) string {
	digits := digitsRe.ReplaceAllString(phone, "")
	if len(digits) < 8 {
		return ""
	}
	return digits
}

// NormalizeHost extracts the lowercased host from a website URL and strips a
// leading "www.". Returns "" when no host can be determined.
func NormalizeHost(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// NormalizeName lowercases, strips diacritics, and drops everything that is
// not alphanumeric so names compare on their letters alone.
func NormalizeName(name string) string {
	name = stripDiacritics(strings.ToLower(strings.TrimSpace(name)))
	return nonAlnumRe.ReplaceAllString(name, "")
}

// NormalizeAddress lowercases, strips diacritics, collapses street-type
// abbreviations, removes floor/unit tokens and punctuation, and collapses
// whitespace.
func NormalizeAddress(addr string) string {
	addr = stripDiacritics(strings.ToLower(strings.TrimSpace(addr)))
	addr = floorUnitRe.ReplaceAllString(addr, " ")
	addr = punctRe.ReplaceAllString(addr, " ")

	fields := strings.Fields(addr)
	for i, f := range fields {
		if canon, ok := addressAbbrevs[f]; ok {
			fields[i] = canon
		}
	}
	addr = strings.Join(fields, " ")
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(addr, " "))
}
