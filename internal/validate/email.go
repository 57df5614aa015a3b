// Package validate scores candidate person names and email addresses for
// plausibility using heuristic pattern rules. Everything here is pure and
// deterministic: no I/O, no clock, no external calls.
package validate

import (
	"regexp"
	"strings"
)

// emailShapeRe is the hard gate: anything that is not local@domain.tld
// scores zero regardless of other rules.
var emailShapeRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// freeMailProviders are consumer mail domains. An address on one of these is
// not a business email and is penalized.
var freeMailProviders = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"yahoo.co.uk":    true,
	"hotmail.com":    true,
	"hotmail.co.uk":  true,
	"outlook.com":    true,
	"live.com":       true,
	"msn.com":        true,
	"aol.com":        true,
	"icloud.com":     true,
	"me.com":         true,
	"protonmail.com": true,
	"proton.me":      true,
	"gmx.com":        true,
	"gmx.de":         true,
	"mail.com":       true,
	"yandex.com":     true,
	"yandex.ru":      true,
	"zoho.com":       true,
}

// roleLocalParts are generic mailbox names. They reach a department, not a
// person, so they take a large penalty.
var roleLocalParts = map[string]bool{
	"info":       true,
	"support":    true,
	"sales":      true,
	"admin":      true,
	"contact":    true,
	"office":     true,
	"hello":      true,
	"help":       true,
	"team":       true,
	"marketing":  true,
	"hr":         true,
	"billing":    true,
	"accounts":   true,
	"careers":    true,
	"jobs":       true,
	"press":      true,
	"media":      true,
	"noreply":    true,
	"no-reply":   true,
	"postmaster": true,
	"webmaster":  true,
	"enquiries":  true,
	"inquiries":  true,
}

// placeholderEmailPatterns force a zero score: synthetic addresses that show
// up in documentation, templates, and scraped boilerplate.
var placeholderEmailPatterns = []string{
	"example@",
	"test@",
	"sample@",
	"demo@",
	"fake@",
	"user@",
	"email@",
	"name@",
	"your@",
	"someone@",
	"@example.",
	"@test.",
	"@domain.",
	"@email.",
	"@yourcompany.",
	"@company.",
}

// IsPlaceholderEmail reports whether the address matches the synthetic
// denylist. Placeholders score zero no matter what other rules say.
func IsPlaceholderEmail(email string) bool {
	lower := strings.ToLower(strings.TrimSpace(email))
	for _, p := range placeholderEmailPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsBusinessDomain reports whether the domain is not a known free/consumer
// mail provider.
func IsBusinessDomain(domain string) bool {
	return !freeMailProviders[strings.ToLower(strings.TrimSpace(domain))]
}

// ScoreEmailPattern scores an email address 0-100 for the likelihood that it
// is a real, personal, business address.
func ScoreEmailPattern(email string) int {
	email = strings.ToLower(strings.TrimSpace(email))

	if IsPlaceholderEmail(email) {
		return 0
	}
	if !emailShapeRe.MatchString(email) {
		return 0
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	score := 50

	if IsBusinessDomain(domain) {
		score += 20
	} else {
		score -= 20
	}

	// Local-part shape bonuses, most specific first. Only one applies.
	switch {
	case isFirstDotLast(local):
		score += 25
	case isInitialDotLast(local):
		score += 20
	case isAlpha(local) && len(local) > 5:
		score += 15 // firstlast
	case isAlpha(local) && len(local) >= 4:
		score += 10 // flast
	}

	if roleLocalParts[strings.Trim(local, ".-_")] {
		score -= 40
	}

	return clampScore(score)
}

// isFirstDotLast matches "first.last": two alphabetic tokens of 2+ chars.
func isFirstDotLast(local string) bool {
	parts := strings.Split(local, ".")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) >= 2 && len(parts[1]) >= 2 && isAlpha(parts[0]) && isAlpha(parts[1])
}

// isInitialDotLast matches "f.last": single initial plus a surname token.
func isInitialDotLast(local string) bool {
	parts := strings.Split(local, ".")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) == 1 && len(parts[1]) >= 2 && isAlpha(parts[0]) && isAlpha(parts[1])
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
