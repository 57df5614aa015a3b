package search

import (
	"context"
	"sync"

	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/provider"
	"github.com/sells-group/contact-discovery/internal/store"
)

type mockStore struct {
	mu        sync.Mutex
	contacts  map[string]*model.Contact
	companies map[string]*model.Company
	updates   []model.ContactUpdate
	updateErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		contacts:  make(map[string]*model.Contact),
		companies: make(map[string]*model.Company),
	}
}

func (m *mockStore) CreateContact(_ context.Context, c model.Contact) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = &c
	return &c, nil
}

func (m *mockStore) CreateContacts(_ context.Context, cs []model.Contact) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		cc := c
		m.contacts[c.ID] = &cc
	}
	return int64(len(cs)), nil
}

func (m *mockStore) GetContact(_ context.Context, id string) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	cp.CompletedSearches = c.CompletedSearches.Clone()
	return &cp, nil
}

func (m *mockStore) UpdateContact(_ context.Context, id string, upd model.ContactUpdate) (*model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	c, ok := m.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m.updates = append(m.updates, upd)

	if upd.Email != nil {
		c.Email = *upd.Email
	}
	if upd.Role != nil {
		c.Role = *upd.Role
	}
	if upd.AlternativeEmails != nil {
		c.AlternativeEmails = upd.AlternativeEmails
	}
	if upd.Probability != nil {
		c.Probability = *upd.Probability
	}
	if upd.CompletedSearches != nil {
		c.CompletedSearches = upd.CompletedSearches.Clone()
	}
	if upd.LastValidated != nil {
		c.LastValidated = upd.LastValidated
	}
	cp := *c
	return &cp, nil
}

func (m *mockStore) ListContactsByCompany(_ context.Context, companyID string) ([]model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Contact
	for _, c := range m.contacts {
		if c.CompanyID == companyID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockStore) GetCompany(_ context.Context, id string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	co, ok := m.companies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *co
	return &cp, nil
}

func (m *mockStore) UpsertCompany(_ context.Context, co model.Company) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[co.ID] = &co
	return &co, nil
}

func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

func (m *mockStore) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// fakeAdapter is a scriptable provider. The shared order slice records
// invocation sequence across adapters.
type fakeAdapter struct {
	tag     model.ProviderTag
	result  provider.Result
	calls   int
	order   *[]model.ProviderTag
	orderMu *sync.Mutex
	onExec  func(ctx context.Context)
}

func (f *fakeAdapter) Tag() model.ProviderTag { return f.tag }

func (f *fakeAdapter) Execute(ctx context.Context, _ model.SearchContext) provider.Result {
	f.calls++
	if f.order != nil {
		f.orderMu.Lock()
		*f.order = append(*f.order, f.tag)
		f.orderMu.Unlock()
	}
	if f.onExec != nil {
		f.onExec(ctx)
	}
	res := f.result
	res.Source = f.tag
	return res
}

type chargeCall struct {
	contactID  string
	emailFound bool
}

type mockLedger struct {
	mu         sync.Mutex
	status     model.CreditStatus
	checkErr   error
	chargeErr  error
	checkCalls int
	charges    []chargeCall
}

func (m *mockLedger) CheckCredits(context.Context) (model.CreditStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkCalls++
	if m.checkErr != nil {
		return model.CreditStatus{}, m.checkErr
	}
	return m.status, nil
}

func (m *mockLedger) ChargeForEmailSearch(_ context.Context, contactID string, emailFound bool) (model.ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges = append(m.charges, chargeCall{contactID, emailFound})
	if m.chargeErr != nil {
		return model.ChargeResult{}, m.chargeErr
	}
	return model.ChargeResult{Success: true, Charged: emailFound}, nil
}

func (m *mockLedger) chargeCalls() []chargeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chargeCall(nil), m.charges...)
}
