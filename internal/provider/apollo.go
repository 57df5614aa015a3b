package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/resilience"
	"github.com/sells-group/contact-discovery/internal/validate"
	"github.com/sells-group/contact-discovery/pkg/apollo"
)

// ApolloAdapter searches Apollo's company/people records for a primary email.
type ApolloAdapter struct {
	client apollo.Client
	retry  resilience.RetryConfig
}

// NewApolloAdapter creates the Apollo adapter.
func NewApolloAdapter(client apollo.Client) *ApolloAdapter {
	return &ApolloAdapter{
		client: client,
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Tag implements Adapter.
func (a *ApolloAdapter) Tag() model.ProviderTag { return model.TagApolloSearch }

// Execute implements Adapter. Any transport or API failure is converted to an
// empty result; the waterfall decides what happens next.
func (a *ApolloAdapter) Execute(ctx context.Context, sc model.SearchContext) Result {
	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*apollo.MatchResponse, error) {
		return a.client.MatchPerson(ctx, apollo.MatchRequest{
			Name:             sc.ContactName,
			OrganizationName: sc.CompanyName,
			Domain:           sc.Domain,
		})
	})
	if err != nil {
		zap.L().Warn("provider: apollo search failed",
			zap.String("contact", sc.ContactName),
			zap.Error(err),
		)
		return empty(a.Tag(), err.Error())
	}

	if resp.Person == nil || resp.Person.Email == "" {
		return Result{Source: a.Tag(), Metadata: map[string]string{"match": "none"}}
	}

	email := resp.Person.Email
	if validate.ScoreEmailPattern(email) == 0 {
		// Shape gate or placeholder: treat like no match.
		return Result{Source: a.Tag(), Metadata: map[string]string{"match": "rejected_by_pattern"}}
	}

	confidence := 65
	if resp.Person.EmailStatus == "verified" {
		confidence = 90
	}

	return Result{
		Source:     a.Tag(),
		Email:      email,
		Role:       resp.Person.Title,
		Confidence: confidence,
	}
}
