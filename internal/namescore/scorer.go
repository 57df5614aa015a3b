// Package namescore scores candidate person names with a single batched
// language-model classification call. A classifier outage or malformed
// response degrades scoring quality but never blocks discovery: every
// failure path returns an empty score map, not an error.
package namescore

import (
	"encoding/json"
	"fmt"
	"strings"

	"context"

	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/pkg/anthropic"
)

// MaxAIScore caps classifier scores; the remaining headroom to 100 is
// reserved for pattern corroboration.
const MaxAIScore = 95

const systemPrompt = `You classify candidate strings as real person names. Score each candidate 0-95 where 0 means definitely not a person (department label, company name, search query echo) and 95 means certainly a real full name. Respond with ONLY a JSON object mapping each candidate string exactly as given to its integer score.`

const userPromptTemplate = `Candidates:
%s
%s%sReturn a JSON object: {"<candidate>": <score 0-95>, ...}`

// Scorer batches candidate names into one classification request.
type Scorer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New creates a Scorer using the given Anthropic client and model ID.
func New(client anthropic.Client, model string) *Scorer {
	return &Scorer{
		client:    client,
		model:     model,
		maxTokens: 1024,
	}
}

// ValidateNames scores all candidate names in a single classification call
// and returns a name → score map. Fail-open: any transport or parse failure
// returns an empty map.
func (s *Scorer) ValidateNames(ctx context.Context, names []string, companyName, searchPrompt string) map[string]int {
	if len(names) == 0 || s.client == nil {
		return map[string]int{}
	}

	var list strings.Builder
	for _, n := range names {
		fmt.Fprintf(&list, "- %s\n", n)
	}

	companyLine := ""
	if companyName != "" {
		companyLine = fmt.Sprintf("Company context: %s\n", companyName)
	}
	queryLine := ""
	if searchPrompt != "" {
		queryLine = fmt.Sprintf("Search query these were found under: %s\n", searchPrompt)
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, list.String(), companyLine, queryLine)},
		},
	})
	if err != nil {
		zap.L().Warn("namescore: classification call failed, scoring without AI",
			zap.Int("names", len(names)),
			zap.Error(err),
		)
		return map[string]int{}
	}

	resp.Usage.LogCost(s.model, "name_validation")

	scores, ok := parseScores(resp.Text())
	if !ok {
		zap.L().Warn("namescore: unparseable classifier response, scoring without AI",
			zap.Int("names", len(names)),
		)
		return map[string]int{}
	}
	return scores
}

// parseScores recovers a name → score map from the classifier response. The
// whole batch is rejected when no JSON object is recoverable or any value is
// outside [0, MaxAIScore].
func parseScores(text string) (map[string]int, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, false
	}

	scores := make(map[string]int, len(raw))
	for name, v := range raw {
		if v < 0 || v > MaxAIScore {
			return nil, false
		}
		scores[name] = int(v)
	}
	return scores, true
}
