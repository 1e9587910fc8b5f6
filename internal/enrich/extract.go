// Package enrich resolves missing contact data for a lead from secondary
// sources: the business website, search-engine discovery, and social
// profiles. All fan-out for one lead runs against a shared deadline.
package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

	// obfuscatedEmailRe catches "info [at] dominio [dot] com" spellings, with
	// "arroba"/"punto" for Spanish-language sites.
	obfuscatedEmailRe = regexp.MustCompile(`(?i)([a-z0-9._%+\-]+)\s*[\[(]\s*(?:at|arroba)\s*[\])]\s*([a-z0-9\-]+)\s*[\[(]\s*(?:dot|punto)\s*[\])]\s*([a-z]{2,})`)

	// phoneRe matches international and Argentine local formats with enough
	// digits to be a real number.
	phoneRe = regexp.MustCompile(`(?:\+?54\s?)?(?:9\s?)?(?:\(?0?11\)?[\s.\-]?)?\d{4}[\s.\-]?\d{4}|\+\d{1,3}[\s.\-]?\d{2,4}[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}`)

	waLinkRe = regexp.MustCompile(`(?:wa\.me|api\.whatsapp\.com/send\?phone=)/?(\+?\d{8,15})`)

	followersRe = regexp.MustCompile(`(?i)([\d.,]+)\s*([km])?\s*(?:followers|seguidores)`)

	nonDigitRe = regexp.MustCompile(`\D`)
)

// junkEmailSuffixes filters asset filenames and placeholder addresses that
// the email regex picks up from raw HTML.
var junkEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

var junkEmailDomains = []string{"example.com", "email.com", "domain.com", "tudominio.com", "sentry.io", "wixpress.com"}

// ExtractEmails returns deduplicated, lowercased email addresses found in
// text, including de-obfuscated "[at] [dot]" spellings. Order of first
// appearance is preserved.
func ExtractEmails(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || !validEmail(email) {
			return
		}
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	for _, m := range emailRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range obfuscatedEmailRe.FindAllStringSubmatch(text, -1) {
		add(m[1] + "@" + m[2] + "." + m[3])
	}
	return out
}

func validEmail(email string) bool {
	for _, suffix := range junkEmailSuffixes {
		if strings.HasSuffix(email, suffix) {
			return false
		}
	}
	at := strings.LastIndex(email, "@")
	if at < 1 {
		return false
	}
	domain := email[at+1:]
	for _, junk := range junkEmailDomains {
		if domain == junk {
			return false
		}
	}
	return true
}

// ExtractPhones returns deduplicated phone numbers found in text, keeping
// the original formatting. Matches with fewer than 8 digits are dropped.
func ExtractPhones(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := nonDigitRe.ReplaceAllString(m, "")
		if len(digits) < 8 {
			continue
		}
		if _, ok := seen[digits]; ok {
			continue
		}
		seen[digits] = struct{}{}
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

// ExtractWhatsApp returns the first WhatsApp number referenced via a wa.me
// or api.whatsapp.com link, digits only, or "".
func ExtractWhatsApp(text string) string {
	m := waLinkRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return nonDigitRe.ReplaceAllString(m[1], "")
}

// ExtractFollowers parses a follower count like "12.5K followers" or
// "1.234 seguidores". Returns 0 when nothing matches.
func ExtractFollowers(text string) int {
	m := followersRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	raw := m[1]
	unit := strings.ToLower(m[2])

	if unit != "" {
		// "12.5K" style: the separator is a decimal point.
		val, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return 0
		}
		switch unit {
		case "k":
			return int(val * 1_000)
		case "m":
			return int(val * 1_000_000)
		}
	}

	// Plain count: separators are thousands marks.
	digits := nonDigitRe.ReplaceAllString(raw, "")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
