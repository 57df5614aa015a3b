package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-discovery/internal/db"
	"github.com/sells-group/contact-discovery/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	contactColumns = `id, company_id, name, role, email, alternative_emails, probability, name_confidence_score, completed_searches, last_validated, created_at, updated_at`
	companyColumns = `id, name, website, size, services, differentiation, validation_points, total_score, created_at, updated_at`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_contact":           `INSERT INTO contacts (` + contactColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"get_contact":              `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`,
	"list_contacts_by_company": `SELECT ` + contactColumns + ` FROM contacts WHERE company_id = $1 ORDER BY created_at`,
	"get_company":              `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name              TEXT NOT NULL,
	website           TEXT,
	size              INTEGER NOT NULL DEFAULT 0,
	services          JSONB NOT NULL DEFAULT '[]',
	differentiation   JSONB NOT NULL DEFAULT '[]',
	validation_points INTEGER NOT NULL DEFAULT 0,
	total_score       INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id            TEXT NOT NULL REFERENCES companies(id),
	name                  TEXT NOT NULL,
	role                  TEXT,
	email                 TEXT,
	alternative_emails    JSONB NOT NULL DEFAULT '[]',
	probability           INTEGER NOT NULL DEFAULT 0,
	name_confidence_score INTEGER NOT NULL DEFAULT 0,
	completed_searches    JSONB NOT NULL DEFAULT '[]',
	last_validated        TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_company_id ON contacts(company_id);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE INDEX IF NOT EXISTS idx_companies_name ON companies(name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateContact(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	c := normalizeContact(contact)

	alt, searches, err := marshalContactJSON(&c)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_contact"],
		c.ID, c.CompanyID, c.Name, c.Role, nullableText(c.Email), alt,
		c.Probability, c.NameConfidenceScore, searches, c.LastValidated,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert contact")
	}
	return &c, nil
}

// CreateContacts bulk-inserts mined contacts, updating existing rows on id
// conflict. Used by the extraction pipeline after a mining run.
func (s *PostgresStore) CreateContacts(ctx context.Context, contacts []model.Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	columns := strings.Split(contactColumns, ", ")
	rows := make([][]any, 0, len(contacts))
	for _, contact := range contacts {
		c := normalizeContact(contact)
		alt, searches, err := marshalContactJSON(&c)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			c.ID, c.CompanyID, c.Name, c.Role, nullableText(c.Email), alt,
			c.Probability, c.NameConfidenceScore, searches, c.LastValidated,
			c.CreatedAt, c.UpdatedAt,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "contacts",
		Columns:      columns,
		ConflictKeys: []string{"id"},
	}, rows)
}

func (s *PostgresStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_contact"], id)
	return scanContact(row)
}

func (s *PostgresStore) UpdateContact(ctx context.Context, id string, upd model.ContactUpdate) (*model.Contact, error) {
	sets := []string{"updated_at = now()"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Email != nil {
		sets = append(sets, "email = "+arg(nullableText(*upd.Email)))
	}
	if upd.Role != nil {
		sets = append(sets, "role = "+arg(*upd.Role))
	}
	if upd.AlternativeEmails != nil {
		alt, err := json.Marshal(upd.AlternativeEmails)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal alternative emails")
		}
		sets = append(sets, "alternative_emails = "+arg(string(alt)))
	}
	if upd.Probability != nil {
		sets = append(sets, "probability = "+arg(*upd.Probability))
	}
	if upd.CompletedSearches != nil {
		searches, err := json.Marshal(upd.CompletedSearches)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal completed searches")
		}
		sets = append(sets, "completed_searches = "+arg(string(searches)))
	}
	if upd.LastValidated != nil {
		sets = append(sets, "last_validated = "+arg(*upd.LastValidated))
	}

	query := fmt.Sprintf(
		"UPDATE contacts SET %s WHERE id = %s RETURNING %s",
		strings.Join(sets, ", "), arg(id), contactColumns,
	)

	row := s.pool.QueryRow(ctx, query, args...)
	return scanContact(row)
}

func (s *PostgresStore) ListContactsByCompany(ctx context.Context, companyID string) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_contacts_by_company"], companyID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_company"], id)
	return scanCompany(row)
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, company model.Company) (*model.Company, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal services")
	}
	differentiation, err := json.Marshal(emptyIfNil(company.Differentiation))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal differentiation")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, website = EXCLUDED.website, size = EXCLUDED.size,
			services = EXCLUDED.services, differentiation = EXCLUDED.differentiation,
			validation_points = EXCLUDED.validation_points, total_score = EXCLUDED.total_score,
			updated_at = EXCLUDED.updated_at`,
		company.ID, company.Name, company.Website, company.Size,
		string(services), string(differentiation),
		company.ValidationPoints, company.TotalScore,
		company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert company")
	}
	return &company, nil
}

// helpers

func normalizeContact(c model.Contact) model.Contact {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.CompletedSearches == nil {
		c.CompletedSearches = model.NewTagSet()
	}
	return c
}

func marshalContactJSON(c *model.Contact) (alt, searches string, err error) {
	altB, err := json.Marshal(emptyIfNil(c.AlternativeEmails))
	if err != nil {
		return "", "", eris.Wrap(err, "postgres: marshal alternative emails")
	}
	searchesB, err := json.Marshal(c.CompletedSearches)
	if err != nil {
		return "", "", eris.Wrap(err, "postgres: marshal completed searches")
	}
	return string(altB), string(searchesB), nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// nullableText maps "" to NULL so partial indexes and IS NULL checks behave.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	var role, email *string
	var altJSON, searchesJSON string

	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &role, &email, &altJSON,
		&c.Probability, &c.NameConfidenceScore, &searchesJSON, &c.LastValidated,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan contact")
	}

	if role != nil {
		c.Role = *role
	}
	if email != nil {
		c.Email = *email
	}
	if err := json.Unmarshal([]byte(altJSON), &c.AlternativeEmails); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal alternative emails")
	}
	if err := json.Unmarshal([]byte(searchesJSON), &c.CompletedSearches); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal completed searches")
	}
	return &c, nil
}

func scanCompany(row scannable) (*model.Company, error) {
	var co model.Company
	var website *string
	var servicesJSON, diffJSON string

	err := row.Scan(&co.ID, &co.Name, &website, &co.Size, &servicesJSON, &diffJSON,
		&co.ValidationPoints, &co.TotalScore, &co.CreatedAt, &co.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan company")
	}

	if website != nil {
		co.Website = *website
	}
	if err := json.Unmarshal([]byte(servicesJSON), &co.Services); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal services")
	}
	if err := json.Unmarshal([]byte(diffJSON), &co.Differentiation); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal differentiation")
	}
	return &co, nil
}
