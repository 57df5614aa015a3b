// Package billing wraps the credit-ledger collaborator that gates email
// searches. The engine checks credits before a waterfall starts and charges
// only when the search actually found an email.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/model"
)

// Ledger is the credit-ledger contract used around a discovery run.
type Ledger interface {
	// CheckCredits returns the account's balance and block status. Callers
	// must treat an error as blocked.
	CheckCredits(ctx context.Context) (model.CreditStatus, error)
	// ChargeForEmailSearch settles one discovery run. When emailFound is
	// false no charge is made and the endpoint is never called.
	ChargeForEmailSearch(ctx context.Context, contactID string, emailFound bool) (model.ChargeResult, error)
}

// Option configures the HTTP ledger client.
type Option func(*httpLedger)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *httpLedger) {
		l.http = c
	}
}

// WithSearchCost overrides the per-search credit cost reported in charges.
func WithSearchCost(cost int) Option {
	return func(l *httpLedger) {
		l.searchCost = cost
	}
}

type httpLedger struct {
	baseURL    string
	apiKey     string
	searchCost int
	http       *http.Client
}

// NewLedger creates a ledger client against the billing service.
func NewLedger(baseURL, apiKey string, opts ...Option) Ledger {
	l := &httpLedger{
		baseURL:    baseURL,
		apiKey:     apiKey,
		searchCost: 1,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type creditsResponse struct {
	Balance   int  `json:"balance"`
	IsBlocked bool `json:"is_blocked"`
}

func (l *httpLedger) CheckCredits(ctx context.Context) (model.CreditStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v1/credits", nil)
	if err != nil {
		return model.CreditStatus{}, eris.Wrap(err, "billing: create credits request")
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.http.Do(req)
	if err != nil {
		return model.CreditStatus{}, eris.Wrap(err, "billing: credits request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return model.CreditStatus{}, eris.Errorf("billing: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload creditsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.CreditStatus{}, eris.Wrap(err, "billing: decode credits response")
	}

	return model.CreditStatus{
		Balance:   payload.Balance,
		IsBlocked: payload.IsBlocked,
	}, nil
}

type chargeRequest struct {
	ContactID  string `json:"contact_id"`
	EmailFound bool   `json:"email_found"`
	Amount     int    `json:"amount"`
}

type chargeResponse struct {
	Success    bool `json:"success"`
	Charged    bool `json:"charged"`
	NewBalance int  `json:"new_balance"`
}

func (l *httpLedger) ChargeForEmailSearch(ctx context.Context, contactID string, emailFound bool) (model.ChargeResult, error) {
	if !emailFound {
		// Not-found runs are free; settle locally.
		return model.ChargeResult{Success: true, Charged: false}, nil
	}

	body, err := json.Marshal(chargeRequest{
		ContactID:  contactID,
		EmailFound: emailFound,
		Amount:     l.searchCost,
	})
	if err != nil {
		return model.ChargeResult{}, eris.Wrap(err, "billing: marshal charge request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/charges/email-search", l.baseURL), bytes.NewReader(body))
	if err != nil {
		return model.ChargeResult{}, eris.Wrap(err, "billing: create charge request")
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return model.ChargeResult{}, eris.Wrap(err, "billing: charge request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return model.ChargeResult{}, eris.Errorf("billing: unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var payload chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.ChargeResult{}, eris.Wrap(err, "billing: decode charge response")
	}

	zap.L().Info("billing: search charged",
		zap.String("contact_id", contactID),
		zap.Int("amount", l.searchCost),
		zap.Int("new_balance", payload.NewBalance),
	)

	return model.ChargeResult{
		Success:    payload.Success,
		Charged:    payload.Charged,
		NewBalance: payload.NewBalance,
	}, nil
}
