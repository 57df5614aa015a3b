package provider

import (
	"strings"

	"github.com/sells-group/contact-discovery/internal/validate"
)

// candidateMinScore is the pattern-score floor for generated guesses.
const candidateMinScore = 50

// CandidateEmails generates the standard local-part permutations for a
// person at a domain and keeps only those the pattern validator rates as
// plausible. These are guesses: callers must not persist one as a verified
// email without corroboration from provider data or page text.
func CandidateEmails(first, last, domain string) []string {
	first = strings.ToLower(strings.TrimSpace(first))
	last = strings.ToLower(strings.TrimSpace(last))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if first == "" || domain == "" {
		return nil
	}

	var locals []string
	if last != "" {
		locals = append(locals,
			first+"."+last,
			first[:1]+"."+last,
			first,
			last,
			first+last,
			first+last[:1],
			first[:1]+last,
			first+"-"+last,
			first+"_"+last,
			last+"."+first,
		)
	} else {
		locals = append(locals, first)
	}

	seen := make(map[string]bool, len(locals))
	var out []string
	for _, local := range locals {
		email := local + "@" + domain
		if seen[email] {
			continue
		}
		seen[email] = true
		if validate.ScoreEmailPattern(email) >= candidateMinScore {
			out = append(out, email)
		}
	}
	return out
}
