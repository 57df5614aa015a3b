package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/validate"
	"github.com/sells-group/contact-discovery/pkg/perplexity"
)

const enrichSystemPrompt = `You are a contact researcher. Given a person and company, find their current business email address and role from public sources. Respond with ONLY a JSON object: {"email": "<address or null>", "role": "<title or null>", "confidence": <0-100>}. Use null when not found; never guess an address.`

// EnrichAdapter runs a people-enrichment search through a Perplexity-style
// research model.
type EnrichAdapter struct {
	client perplexity.Client
	model  string
}

// NewEnrichAdapter creates the enrichment adapter.
func NewEnrichAdapter(client perplexity.Client, modelID string) *EnrichAdapter {
	return &EnrichAdapter{client: client, model: modelID}
}

// Tag implements Adapter.
func (a *EnrichAdapter) Tag() model.ProviderTag { return model.TagContactEnrichment }

// Execute implements Adapter.
func (a *EnrichAdapter) Execute(ctx context.Context, sc model.SearchContext) Result {
	site := sc.Website
	if site == "" {
		site = sc.Domain
	}

	prompt := fmt.Sprintf("Person: %s\nCompany: %s\nWebsite: %s", sc.ContactName, sc.CompanyName, site)

	maxTokens := 256
	req := perplexity.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: &maxTokens,
		Messages: []perplexity.Message{
			{Role: "system", Content: enrichSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	if sc.Domain != "" {
		req.SearchDomainFilter = []string{sc.Domain}
	}
	resp, err := a.client.ChatCompletion(ctx, req)
	if err != nil {
		zap.L().Warn("provider: enrichment search failed",
			zap.String("contact", sc.ContactName),
			zap.Error(err),
		)
		return empty(a.Tag(), err.Error())
	}

	email, role, confidence, ok := parseEnrichment(resp.Content())
	if !ok {
		return empty(a.Tag(), "unparseable enrichment response")
	}
	if email == "" || validate.ScoreEmailPattern(email) == 0 {
		return Result{Source: a.Tag(), Role: role, Metadata: map[string]string{"match": "none"}}
	}

	return Result{
		Source:     a.Tag(),
		Email:      email,
		Role:       role,
		Confidence: confidence,
	}
}

// parseEnrichment recovers the strict-JSON enrichment payload. Model chatter
// around the object is tolerated; a missing object is a semantic failure.
func parseEnrichment(text string) (email, role string, confidence int, ok bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", "", 0, false
	}

	var payload struct {
		Email      *string `json:"email"`
		Role       *string `json:"role"`
		Confidence int     `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return "", "", 0, false
	}

	if payload.Email != nil && !strings.EqualFold(*payload.Email, "null") {
		email = strings.TrimSpace(*payload.Email)
	}
	if payload.Role != nil && !strings.EqualFold(*payload.Role, "null") {
		role = strings.TrimSpace(*payload.Role)
	}
	confidence = payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return email, role, confidence, true
}
