package validate

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NameOptions tunes ScoreName for the context the candidate was found in.
type NameOptions struct {
	// SearchQuery is the active query whose terms a real person name should
	// not simply echo back.
	SearchQuery string
}

// placeholderNames force a zero score for obviously synthetic names.
var placeholderNames = map[string]bool{
	"john doe":   true,
	"john smith": true,
	"first last": true,
	"full name":  true,
	"your name":  true,
	"test":       true,
	"test user":  true,
	"example":    true,
	"lorem ipsum": true,
	"n/a":        true,
	"unknown":    true,
	"tbd":        true,
}

// departmentWords are generic role/department labels that get mistaken for
// person names during extraction ("Sales Team", "Marketing").
var departmentWords = []string{
	"team", "sales", "marketing", "support", "department", "dept",
	"group", "division", "staff", "office", "admin", "customer service",
	"human resources", "engineering", "operations", "management",
	"leadership", "board", "committee",
}

// roleTitleWords signal a person's title appearing near the name in the
// surrounding context window.
var roleTitleWords = []string{
	"ceo", "cto", "cfo", "coo", "founder", "co-founder", "owner",
	"president", "vice president", "vp", "director", "manager",
	"head of", "chief", "partner", "principal", "lead",
}

// foldTransformer strips diacritics so "José García" and "Jose Garcia"
// pass the same shape checks.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases and removes diacritics from a name string.
func foldName(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// IsPlaceholderName reports whether the name matches the synthetic denylist.
func IsPlaceholderName(name string) bool {
	return placeholderNames[foldName(name)]
}

// ScoreName scores a candidate person name 0-100 against heuristic shape and
// context rules. contextWindow is the text surrounding the candidate in the
// source fragment; companyName is the company it was found for.
func ScoreName(name, contextWindow, companyName string, opts NameOptions) int {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || IsPlaceholderName(trimmed) {
		return 0
	}

	score := 50
	folded := foldName(trimmed)
	tokens := strings.Fields(trimmed)

	// Clean "First Last" shape is the strongest positive signal.
	switch {
	case len(tokens) == 2 && isNameToken(tokens[0]) && isNameToken(tokens[1]):
		score += 25
	case len(tokens) == 3 && isNameToken(tokens[0]) && isNameToken(tokens[2]):
		score += 15
	case len(tokens) == 1:
		score -= 20
	case len(tokens) > 4:
		score -= 25
	}

	if overlapsQueryTerms(folded, opts.SearchQuery) {
		score -= 20
	}

	if HasCompanyOverlap(trimmed, companyName) {
		score -= 25
	}

	for _, w := range departmentWords {
		if containsWord(folded, w) {
			score -= 30
			break
		}
	}

	// Role title in the surrounding text corroborates a real person.
	if RoleEvidence(contextWindow) {
		score += 10
	}

	return clampScore(score)
}

// RoleEvidence reports whether the context window mentions a job title.
func RoleEvidence(contextWindow string) bool {
	if contextWindow == "" {
		return false
	}
	lower := foldName(contextWindow)
	for _, w := range roleTitleWords {
		if containsWord(lower, w) {
			return true
		}
	}
	return false
}

// HasCompanyOverlap reports whether any significant token of the company name
// appears in the candidate name. Short tokens and legal suffixes are ignored.
func HasCompanyOverlap(name, companyName string) bool {
	if companyName == "" {
		return false
	}
	nameFolded := foldName(name)
	for _, tok := range strings.Fields(foldName(companyName)) {
		tok = strings.Trim(tok, ".,&")
		if len(tok) < 3 || companySuffixes[tok] {
			continue
		}
		if containsWord(nameFolded, tok) {
			return true
		}
	}
	return false
}

var companySuffixes = map[string]bool{
	"inc": true, "llc": true, "ltd": true, "corp": true, "gmbh": true,
	"the": true, "and": true, "company": true, "co": true, "plc": true,
}

// overlapsQueryTerms reports whether the name echoes terms of the active
// search query (a scraped result repeating the query is not a person).
func overlapsQueryTerms(foldedName, query string) bool {
	if query == "" {
		return false
	}
	for _, tok := range strings.Fields(foldName(query)) {
		if len(tok) < 4 {
			continue
		}
		if containsWord(foldedName, tok) {
			return true
		}
	}
	return false
}

// isNameToken checks a single token for person-name shape: capitalized,
// alphabetic with hyphen/apostrophe allowed, at least two characters.
func isNameToken(tok string) bool {
	r := []rune(tok)
	if len(r) < 2 {
		return false
	}
	if !unicode.IsUpper(r[0]) {
		return false
	}
	for _, c := range r[1:] {
		if !unicode.IsLetter(c) && c != '-' && c != '\'' {
			return false
		}
	}
	return true
}

// containsWord reports whether w occurs in s on word boundaries.
func containsWord(s, w string) bool {
	idx := 0
	for {
		pos := strings.Index(s[idx:], w)
		if pos == -1 {
			return false
		}
		start := idx + pos
		end := start + len(w)
		startOK := start == 0 || !isWordRune(rune(s[start-1]))
		endOK := end == len(s) || !isWordRune(rune(s[end]))
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
