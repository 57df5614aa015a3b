// Package search drives the provider waterfall for a single contact: billing
// gate in front, fixed provider order, attempt history on the contact, and a
// single persisted update per terminal transition.
package search

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/billing"
	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/provider"
	"github.com/sells-group/contact-discovery/internal/store"
)

// Sentinel errors callers branch on.
var (
	// ErrSearchInFlight rejects a duplicate concurrent discovery of the
	// same contact.
	ErrSearchInFlight = eris.New("search: contact already in flight")
	// ErrInsufficientCredits blocks a run before any provider is touched.
	ErrInsufficientCredits = eris.New("search: insufficient credits")
)

// DiscoverState is the terminal state of a discovery run.
type DiscoverState string

const (
	// StateAlreadyFound short-circuits: the contact had an email before
	// the run started. No provider and no billing call happens.
	StateAlreadyFound DiscoverState = "already_found"
	StateFound        DiscoverState = "found"
	StateExhausted    DiscoverState = "exhausted"
)

// DiscoverResult reports the outcome of one discovery run.
type DiscoverResult struct {
	Contact      *model.Contact    `json:"contact"`
	State        DiscoverState     `json:"state"`
	Provider     model.ProviderTag `json:"provider,omitempty"`
	Email        string            `json:"email,omitempty"`
	Confidence   int               `json:"confidence,omitempty"`
	Charged      bool              `json:"charged"`
	ChargeFailed bool              `json:"charge_failed,omitempty"`
}

// waterfallTags is the fixed provider order for a discovery run. The
// comprehensive (crawler) search is a separate deep-search operation, not
// part of the automatic waterfall.
var waterfallTags = []model.ProviderTag{
	model.TagApolloSearch,
	model.TagContactEnrichment,
	model.TagHunterSearch,
}

// Orchestrator coordinates store, providers, and billing for discovery runs.
type Orchestrator struct {
	store    store.Store
	registry *provider.Registry
	ledger   billing.Ledger

	approach        Approach
	providerTimeout time.Duration
	searchCost      int
	crawlDepth      int
	crawlPages      int

	events chan ProgressEvent

	mu       sync.Mutex
	inflight map[string]bool
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithApproach restricts which providers the waterfall may use.
func WithApproach(a Approach) Option {
	return func(o *Orchestrator) { o.approach = a }
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.providerTimeout = d }
}

// WithSearchCost sets the credit cost checked against the balance.
func WithSearchCost(cost int) Option {
	return func(o *Orchestrator) { o.searchCost = cost }
}

// WithCrawlLimits bounds the deep-search crawler.
func WithCrawlLimits(maxDepth, maxPages int) Option {
	return func(o *Orchestrator) {
		o.crawlDepth = maxDepth
		o.crawlPages = maxPages
	}
}

// NewOrchestrator wires a discovery orchestrator.
func NewOrchestrator(st store.Store, registry *provider.Registry, ledger billing.Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           st,
		registry:        registry,
		ledger:          ledger,
		approach:        DefaultApproach(),
		providerTimeout: 30 * time.Second,
		searchCost:      1,
		events:          make(chan ProgressEvent, 64),
		inflight:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DiscoverEmail runs the provider waterfall for one contact. Contacts that
// already carry an email short-circuit before the billing check. Providers
// already present in the contact's attempt history are skipped; every
// provider attempted in this run is recorded whether or not it succeeded.
func (o *Orchestrator) DiscoverEmail(ctx context.Context, contactID string) (*DiscoverResult, error) {
	contact, err := o.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, eris.Wrapf(err, "search: load contact %s", contactID)
	}

	if contact.HasEmail() {
		return &DiscoverResult{Contact: contact, State: StateAlreadyFound, Email: contact.Email}, nil
	}

	release, err := o.acquire(contactID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.checkCredits(ctx); err != nil {
		return nil, err
	}

	sc, err := o.buildSearchContext(ctx, contact)
	if err != nil {
		return nil, err
	}

	attempted := contact.CompletedSearches.Clone()
	if attempted == nil {
		attempted = model.NewTagSet()
	}

	for _, tag := range waterfallTags {
		if attempted.Has(tag) || !o.approach.Enabled(tag) {
			continue
		}
		adapter := o.registry.Get(tag)
		if adapter == nil {
			zap.L().Warn("search: provider not registered", zap.String("provider", string(tag)))
			continue
		}

		o.emit(ProgressEvent{ContactID: contactID, Type: EventProviderStart, Provider: tag})

		provCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
		res := adapter.Execute(provCtx, sc)
		cancel()

		// The provider was genuinely attempted; re-invocation must not
		// retry it even if it failed.
		attempted.Add(tag)

		o.emit(ProgressEvent{ContactID: contactID, Type: EventProviderFinish, Provider: tag, Found: res.Found()})

		if ctx.Err() != nil {
			return nil, o.abandon(ctx, contactID, attempted)
		}

		if res.Found() {
			return o.finishFound(ctx, contact, attempted, res)
		}
	}

	return o.finishExhausted(ctx, contact, attempted)
}

// ComprehensiveSearch runs the website crawler for a contact whose waterfall
// came up empty. It is a separate, deliberately heavier operation.
func (o *Orchestrator) ComprehensiveSearch(ctx context.Context, contactID string) (*DiscoverResult, error) {
	contact, err := o.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, eris.Wrapf(err, "search: load contact %s", contactID)
	}

	if contact.HasEmail() {
		return &DiscoverResult{Contact: contact, State: StateAlreadyFound, Email: contact.Email}, nil
	}

	release, err := o.acquire(contactID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.checkCredits(ctx); err != nil {
		return nil, err
	}

	adapter := o.registry.Get(model.TagComprehensiveSearch)
	if adapter == nil {
		return nil, eris.New("search: crawler not registered")
	}

	sc, err := o.buildSearchContext(ctx, contact)
	if err != nil {
		return nil, err
	}

	attempted := contact.CompletedSearches.Clone()
	if attempted == nil {
		attempted = model.NewTagSet()
	}

	o.emit(ProgressEvent{ContactID: contactID, Type: EventProviderStart, Provider: model.TagComprehensiveSearch})
	res := adapter.Execute(ctx, sc)
	attempted.Add(model.TagComprehensiveSearch)
	o.emit(ProgressEvent{ContactID: contactID, Type: EventProviderFinish, Provider: model.TagComprehensiveSearch, Found: res.Found()})

	if res.Found() {
		return o.finishFound(ctx, contact, attempted, res)
	}

	// Persist candidate guesses the crawl produced; they stay alternatives.
	now := time.Now().UTC()
	upd := model.ContactUpdate{
		CompletedSearches: attempted,
		LastValidated:     &now,
	}
	if len(res.Emails) > 0 {
		upd.AlternativeEmails = res.Emails
	}
	updated, err := o.store.UpdateContact(ctx, contact.ID, upd)
	if err != nil {
		return nil, eris.Wrapf(err, "search: persist exhausted contact %s", contact.ID)
	}

	result := &DiscoverResult{Contact: updated, State: StateExhausted}
	o.settle(ctx, contact.ID, false, result)
	o.emit(ProgressEvent{ContactID: contact.ID, Type: EventTerminal, State: StateExhausted})
	return result, nil
}

// acquire claims the contact's in-flight slot or rejects the duplicate.
func (o *Orchestrator) acquire(contactID string) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[contactID] {
		return nil, eris.Wrapf(ErrSearchInFlight, "contact %s", contactID)
	}
	o.inflight[contactID] = true
	return func() {
		o.mu.Lock()
		delete(o.inflight, contactID)
		o.mu.Unlock()
	}, nil
}

// checkCredits fails closed: any ledger error blocks the run.
func (o *Orchestrator) checkCredits(ctx context.Context) error {
	status, err := o.ledger.CheckCredits(ctx)
	if err != nil {
		zap.L().Warn("search: credit check failed, blocking run", zap.Error(err))
		return eris.Wrap(ErrInsufficientCredits, "credit check failed")
	}
	if status.IsBlocked {
		return eris.Wrap(ErrInsufficientCredits, "account blocked")
	}
	if status.Balance < o.searchCost {
		return eris.Wrapf(ErrInsufficientCredits, "balance %d below cost %d", status.Balance, o.searchCost)
	}
	return nil
}

func (o *Orchestrator) buildSearchContext(ctx context.Context, contact *model.Contact) (model.SearchContext, error) {
	company, err := o.store.GetCompany(ctx, contact.CompanyID)
	if err != nil {
		return model.SearchContext{}, eris.Wrapf(err, "search: load company %s", contact.CompanyID)
	}
	return model.SearchContext{
		ContactID:   contact.ID,
		ContactName: contact.Name,
		CompanyName: company.Name,
		Website:     company.Website,
		Domain:      domainOf(company.Website),
		Timeout:     o.providerTimeout,
		MaxDepth:    o.crawlDepth,
		MaxPages:    o.crawlPages,
	}, nil
}

// finishFound persists the terminal found state and settles billing.
func (o *Orchestrator) finishFound(ctx context.Context, contact *model.Contact, attempted model.TagSet, res provider.Result) (*DiscoverResult, error) {
	now := time.Now().UTC()
	email := res.Email
	upd := model.ContactUpdate{
		Email:             &email,
		Probability:       &res.Confidence,
		CompletedSearches: attempted,
		LastValidated:     &now,
	}
	if res.Role != "" && contact.Role == "" {
		role := res.Role
		upd.Role = &role
	}
	if len(res.Emails) > 0 {
		upd.AlternativeEmails = res.Emails
	}

	updated, err := o.store.UpdateContact(ctx, contact.ID, upd)
	if err != nil {
		return nil, eris.Wrapf(err, "search: persist found contact %s", contact.ID)
	}

	result := &DiscoverResult{
		Contact:    updated,
		State:      StateFound,
		Provider:   res.Source,
		Email:      res.Email,
		Confidence: res.Confidence,
	}
	o.settle(ctx, contact.ID, true, result)
	o.emit(ProgressEvent{ContactID: contact.ID, Type: EventTerminal, Provider: res.Source, Found: true, State: StateFound})
	return result, nil
}

// finishExhausted marks the waterfall complete and settles billing at zero.
func (o *Orchestrator) finishExhausted(ctx context.Context, contact *model.Contact, attempted model.TagSet) (*DiscoverResult, error) {
	attempted.Add(model.TagComprehensiveSearch)
	now := time.Now().UTC()

	updated, err := o.store.UpdateContact(ctx, contact.ID, model.ContactUpdate{
		CompletedSearches: attempted,
		LastValidated:     &now,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "search: persist exhausted contact %s", contact.ID)
	}

	result := &DiscoverResult{Contact: updated, State: StateExhausted}
	o.settle(ctx, contact.ID, false, result)
	o.emit(ProgressEvent{ContactID: contact.ID, Type: EventTerminal, State: StateExhausted})
	return result, nil
}

// settle makes the run's single billing call. A failed charge is a warning,
// never a rollback: the discovered email stays.
func (o *Orchestrator) settle(ctx context.Context, contactID string, emailFound bool, result *DiscoverResult) {
	charge, err := o.ledger.ChargeForEmailSearch(ctx, contactID, emailFound)
	if err != nil {
		zap.L().Warn("search: charge failed",
			zap.String("contact_id", contactID),
			zap.Bool("email_found", emailFound),
			zap.Error(err),
		)
		result.ChargeFailed = true
		return
	}
	result.Charged = charge.Charged
}

// abandon persists the attempt history of a cancelled run. Providers that
// were in flight when the context died count as attempted.
func (o *Orchestrator) abandon(ctx context.Context, contactID string, attempted model.TagSet) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := o.store.UpdateContact(persistCtx, contactID, model.ContactUpdate{
		CompletedSearches: attempted,
	}); err != nil {
		zap.L().Warn("search: persist cancelled run failed",
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
	}
	return eris.Wrap(ctx.Err(), "search: run cancelled")
}

// domainOf extracts the bare host from a website URL.
func domainOf(website string) string {
	if website == "" {
		return ""
	}
	raw := website
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.TrimPrefix(website, "www.")
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
