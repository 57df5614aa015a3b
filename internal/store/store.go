// Package store persists contacts and companies behind a backend-agnostic
// interface. Postgres is the production backend; SQLite serves local runs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-discovery/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the discovery engine.
type Store interface {
	// Contacts
	CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error)
	CreateContacts(ctx context.Context, contacts []model.Contact) (int64, error)
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	UpdateContact(ctx context.Context, id string, upd model.ContactUpdate) (*model.Contact, error)
	ListContactsByCompany(ctx context.Context, companyID string) ([]model.Contact, error)

	// Companies
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	UpsertCompany(ctx context.Context, company model.Company) (*model.Company, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
