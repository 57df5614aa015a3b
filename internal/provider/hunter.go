package provider

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/resilience"
	"github.com/sells-group/contact-discovery/internal/validate"
	"github.com/sells-group/contact-discovery/pkg/hunter"
)

// HunterAdapter queries the dedicated email-finder provider.
type HunterAdapter struct {
	client hunter.Client
	retry  resilience.RetryConfig
}

// NewHunterAdapter creates the Hunter adapter.
func NewHunterAdapter(client hunter.Client) *HunterAdapter {
	return &HunterAdapter{
		client: client,
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Tag implements Adapter.
func (a *HunterAdapter) Tag() model.ProviderTag { return model.TagHunterSearch }

// Execute implements Adapter. Hunter reports errors inside a 200 payload;
// those are treated exactly like transport failures: no email, continue.
func (a *HunterAdapter) Execute(ctx context.Context, sc model.SearchContext) Result {
	if sc.Domain == "" {
		return empty(a.Tag(), "no domain to search")
	}

	first, last := SplitName(sc.ContactName)
	if first == "" {
		return empty(a.Tag(), "no contact name")
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*hunter.FindResponse, error) {
		return a.client.FindEmail(ctx, hunter.FindRequest{
			Domain:    sc.Domain,
			FirstName: first,
			LastName:  last,
		})
	})
	if err != nil {
		zap.L().Warn("provider: hunter search failed",
			zap.String("contact", sc.ContactName),
			zap.String("domain", sc.Domain),
			zap.Error(err),
		)
		return empty(a.Tag(), err.Error())
	}

	if len(resp.Errors) > 0 {
		return empty(a.Tag(), resp.Errors[0].Details)
	}
	if resp.Data.Email == "" || validate.ScoreEmailPattern(resp.Data.Email) == 0 {
		return Result{Source: a.Tag(), Metadata: map[string]string{"match": "none"}}
	}

	return Result{
		Source:     a.Tag(),
		Email:      resp.Data.Email,
		Role:       resp.Data.Position,
		Confidence: int(math.Round(resp.Data.Score * 100)),
	}
}
