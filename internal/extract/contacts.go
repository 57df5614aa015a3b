package extract

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/validate"
)

// NameScorer is the AI classification dependency of the contact miner.
type NameScorer interface {
	ValidateNames(ctx context.Context, names []string, companyName, searchPrompt string) map[string]int
}

// candidateNameRe matches two- or three-token capitalized name shapes.
var candidateNameRe = regexp.MustCompile(`\b([A-ZÀ-Þ][a-zà-þ'\-]+(?:\s[A-ZÀ-Þ][a-zà-þ'\-]+){1,2})\b`)

// roleAfterNameRe captures a title following a name: "Jane Doe, CEO" or
// "Jane Doe - Head of Sales".
var roleAfterNameRe = regexp.MustCompile(`^[\s,–—-]+([A-Za-z][A-Za-z &/]{1,40}?)(?:[.,;\n]|$)`)

const contextWindowRadius = 80

// MinerOptions tunes bulk contact extraction.
type MinerOptions struct {
	// MinProbability drops candidates whose combined score falls below it.
	// Defaults to 40.
	MinProbability int
	// SearchPrompt is the active query the fragments were produced by.
	SearchPrompt string
}

// MineContacts extracts candidate contacts from analysis fragments: regex
// name capture, pattern scoring, one batched AI classification, combined
// scores per the validation law. Contacts below the probability floor are
// dropped. The AI pass is fail-open; with no AI scores contacts carry
// pattern-only probabilities under the enhanced (lower) minimum.
func MineContacts(ctx context.Context, fragments []string, companyName string, scorer NameScorer, opts MinerOptions) []model.Contact {
	minProb := opts.MinProbability
	if minProb == 0 {
		minProb = 40
	}

	type candidate struct {
		name    string
		window  string
		pattern int
	}

	var order []string
	byName := make(map[string]*candidate)

	for _, frag := range fragments {
		for _, loc := range candidateNameRe.FindAllStringIndex(frag, -1) {
			name := frag[loc[0]:loc[1]]
			window := contextWindow(frag, loc[0], loc[1])

			pattern := validate.ScoreName(name, window, companyName, validate.NameOptions{SearchQuery: opts.SearchPrompt})
			if pattern == 0 {
				continue // placeholder or empty
			}

			if existing, ok := byName[name]; ok {
				// Keep the best-scoring sighting of a repeated name.
				if pattern > existing.pattern {
					existing.pattern = pattern
					existing.window = window
				}
				continue
			}
			byName[name] = &candidate{name: name, window: window, pattern: pattern}
			order = append(order, name)
		}
	}

	if len(order) == 0 {
		return nil
	}

	aiScores := scorer.ValidateNames(ctx, order, companyName, opts.SearchPrompt)
	aiPresent := len(aiScores) > 0

	var contacts []model.Contact
	for _, name := range order {
		cand := byName[name]
		overlap := validate.HasCompanyOverlap(name, companyName)

		var combined int
		if aiPresent {
			combined = validate.CombineValidationScores(aiScores[name], cand.pattern, validate.CombineOptions{
				CompanyOverlap:     overlap,
				CompanyNamePenalty: 25,
			})
		} else {
			// Enhanced (pattern-only) path: lower minimum, same penalty law.
			combined = cand.pattern
			if combined < validate.EnhancedMinimumScore {
				combined -= 30
			}
			if combined < 75 && overlap {
				combined -= 25
			}
			if combined < 0 {
				combined = 0
			}
		}

		if combined < minProb {
			continue
		}

		contacts = append(contacts, model.Contact{
			Name:                name,
			Role:                mineRole(cand.window, name),
			Probability:         combined,
			NameConfidenceScore: cand.pattern,
			CompletedSearches:   model.NewTagSet(),
		})
	}

	zap.L().Info("extract: mined contacts",
		zap.Int("fragments", len(fragments)),
		zap.Int("candidates", len(order)),
		zap.Int("kept", len(contacts)),
		zap.Bool("ai_scored", aiPresent),
	)

	return contacts
}

// contextWindow returns the text surrounding a match.
func contextWindow(frag string, start, end int) string {
	lo := start - contextWindowRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindowRadius
	if hi > len(frag) {
		hi = len(frag)
	}
	return frag[lo:hi]
}

// mineRole extracts a title that directly follows the name in its window.
func mineRole(window, name string) string {
	idx := strings.Index(window, name)
	if idx == -1 {
		return ""
	}
	rest := window[idx+len(name):]
	m := roleAfterNameRe.FindStringSubmatch(rest)
	if m == nil {
		return ""
	}
	role := strings.TrimSpace(m[1])
	if !validate.RoleEvidence(role) {
		return ""
	}
	return role
}
