package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/contact-discovery/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	website           TEXT,
	size              INTEGER NOT NULL DEFAULT 0,
	services          TEXT NOT NULL DEFAULT '[]',
	differentiation   TEXT NOT NULL DEFAULT '[]',
	validation_points INTEGER NOT NULL DEFAULT 0,
	total_score       INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id                    TEXT PRIMARY KEY,
	company_id            TEXT NOT NULL REFERENCES companies(id),
	name                  TEXT NOT NULL,
	role                  TEXT,
	email                 TEXT,
	alternative_emails    TEXT NOT NULL DEFAULT '[]',
	probability           INTEGER NOT NULL DEFAULT 0,
	name_confidence_score INTEGER NOT NULL DEFAULT 0,
	completed_searches    TEXT NOT NULL DEFAULT '[]',
	last_validated        DATETIME,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_company_id ON contacts(company_id);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	c := normalizeContact(contact)

	alt, searches, err := marshalContactJSON(&c)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CompanyID, c.Name, c.Role, nullableText(c.Email), alt,
		c.Probability, c.NameConfidenceScore, searches, c.LastValidated,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert contact")
	}
	return &c, nil
}

func (s *SQLiteStore) CreateContacts(ctx context.Context, contacts []model.Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, contact := range contacts {
		c := normalizeContact(contact)
		alt, searches, err := marshalContactJSON(&c)
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.CompanyID, c.Name, c.Role, nullableText(c.Email), alt,
			c.Probability, c.NameConfidenceScore, searches, c.LastValidated,
			c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: bulk insert contact")
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return n, nil
}

func (s *SQLiteStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	return scanSQLiteContact(row)
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, id string, upd model.ContactUpdate) (*model.Contact, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, nullableText(*upd.Email))
	}
	if upd.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *upd.Role)
	}
	if upd.AlternativeEmails != nil {
		alt, err := json.Marshal(upd.AlternativeEmails)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal alternative emails")
		}
		sets = append(sets, "alternative_emails = ?")
		args = append(args, string(alt))
	}
	if upd.Probability != nil {
		sets = append(sets, "probability = ?")
		args = append(args, *upd.Probability)
	}
	if upd.CompletedSearches != nil {
		searches, err := json.Marshal(upd.CompletedSearches)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal completed searches")
		}
		sets = append(sets, "completed_searches = ?")
		args = append(args, string(searches))
	}
	if upd.LastValidated != nil {
		sets = append(sets, "last_validated = ?")
		args = append(args, *upd.LastValidated)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE contacts SET %s WHERE id = ?", strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update contact %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetContact(ctx, id)
}

func (s *SQLiteStore) ListContactsByCompany(ctx context.Context, companyID string) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE company_id = ? ORDER BY created_at`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanSQLiteContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	return scanSQLiteCompany(row)
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, company model.Company) (*model.Company, error) {
	if company.ID == "" {
		company.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now

	services, err := json.Marshal(emptyIfNil(company.Services))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal services")
	}
	differentiation, err := json.Marshal(emptyIfNil(company.Differentiation))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal differentiation")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, website = excluded.website, size = excluded.size,
			services = excluded.services, differentiation = excluded.differentiation,
			validation_points = excluded.validation_points, total_score = excluded.total_score,
			updated_at = excluded.updated_at`,
		company.ID, company.Name, company.Website, company.Size,
		string(services), string(differentiation),
		company.ValidationPoints, company.TotalScore,
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert company")
	}
	return &company, nil
}

// scanSQLiteContact mirrors scanContact using database/sql null handling.
func scanSQLiteContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	var role, email sql.NullString
	var lastValidated sql.NullTime
	var altJSON, searchesJSON string

	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &role, &email, &altJSON,
		&c.Probability, &c.NameConfidenceScore, &searchesJSON, &lastValidated,
		&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contact")
	}

	c.Role = role.String
	c.Email = email.String
	if lastValidated.Valid {
		t := lastValidated.Time
		c.LastValidated = &t
	}
	if err := json.Unmarshal([]byte(altJSON), &c.AlternativeEmails); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal alternative emails")
	}
	if err := json.Unmarshal([]byte(searchesJSON), &c.CompletedSearches); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal completed searches")
	}
	return &c, nil
}

func scanSQLiteCompany(row scannable) (*model.Company, error) {
	var co model.Company
	var website sql.NullString
	var servicesJSON, diffJSON string

	err := row.Scan(&co.ID, &co.Name, &website, &co.Size, &servicesJSON, &diffJSON,
		&co.ValidationPoints, &co.TotalScore, &co.CreatedAt, &co.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan company")
	}

	co.Website = website.String
	if err := json.Unmarshal([]byte(servicesJSON), &co.Services); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal services")
	}
	if err := json.Unmarshal([]byte(diffJSON), &co.Differentiation); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal differentiation")
	}
	return &co, nil
}
