package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/schema"
)

// duplicate_object
const pgDuplicateObject = "42710"

// migrations run in order and must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS service_providers (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL DEFAULT '',
		api_key TEXT NOT NULL DEFAULT '',
		url     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL DEFAULT '',
		schema              TEXT NOT NULL DEFAULT '',
		fulfillment_url     TEXT NOT NULL DEFAULT '',
		service_provider_id TEXT,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE projects ADD CONSTRAINT projects_service_provider_fk
		FOREIGN KEY (service_provider_id) REFERENCES service_providers (id)`,
}

// PostgresStore reads projects from Postgres through database/sql and pgx.
// The schema column is TEXT so source key order survives a round trip.
type PostgresStore struct {
	db     *sql.DB
	logger assistant.Logger
}

type PostgresOption func(*PostgresStore)

func WithLogger(l assistant.Logger) PostgresOption {
	return func(s *PostgresStore) {
		s.logger = l
	}
}

// OpenPostgres opens a pooled connection to dsn and pings it.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, opts...), nil
}

func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = assistant.NormalizeLogger(s.logger)
	return s
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate applies the DDL. Objects that already exist are skipped.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			var pgErr *pgconn.PgError
			if stderrors.As(err, &pgErr) && pgErr.Code == pgDuplicateObject {
				s.logger.Debug("migration skipped (already exists): %s", strings.TrimSpace(pgErr.Message))
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Save upserts p and its service provider. Entities and intents are
// persisted through the original schema only.
func (s *PostgresStore) Save(ctx context.Context, p *model.Project) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("save project: id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var providerID sql.NullString
	if sp := p.ServiceProvider; sp.ID != "" {
		providerID = sql.NullString{String: sp.ID, Valid: true}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO service_providers (id, name, api_key, url)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, api_key = EXCLUDED.api_key, url = EXCLUDED.url`,
			sp.ID, sp.Name, sp.Credentials.APIKey, sp.Credentials.URL,
		); err != nil {
			return fmt.Errorf("save service provider %s: %w", sp.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, schema, fulfillment_url, service_provider_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    schema = EXCLUDED.schema,
		    fulfillment_url = EXCLUDED.fulfillment_url,
		    service_provider_id = EXCLUDED.service_provider_id,
		    updated_at = now()`,
		p.ID, p.Name, string(p.OriginalSchema), p.FulfillmentURL, providerID,
	); err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return tx.Commit()
}

// FindByID loads the project and its provider, then hydrates the schema.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.schema, p.fulfillment_url,
		       COALESCE(sp.id, ''), COALESCE(sp.name, ''), COALESCE(sp.api_key, ''), COALESCE(sp.url, '')
		FROM projects p
		LEFT JOIN service_providers sp ON sp.id = p.service_provider_id
		WHERE p.id = $1`, id)

	var (
		p      model.Project
		source string
	)
	err := row.Scan(
		&p.ID, &p.Name, &source, &p.FulfillmentURL,
		&p.ServiceProvider.ID, &p.ServiceProvider.Name,
		&p.ServiceProvider.Credentials.APIKey, &p.ServiceProvider.Credentials.URL,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find project %s: %w", id, err)
	}

	p.OriginalSchema = []byte(source)
	if err := schema.Hydrate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
