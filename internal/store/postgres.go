package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/db"
	"github.com/sells-group/prospector/internal/model"
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

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_lead":       `SELECT ` + pgLeadColumns + ` FROM leads WHERE place_id = $1`,
	"list_place_ids": `SELECT place_id FROM leads`,
	"record_session": `INSERT INTO search_sessions (id, term, area, sub_areas, found, new_leads, duplicates, classification, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
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

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id        TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	emails          JSONB NOT NULL DEFAULT '[]',
	instagram       TEXT NOT NULL DEFAULT '',
	facebook        TEXT NOT NULL DEFAULT '',
	whatsapp        TEXT NOT NULL DEFAULT '',
	rating          DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count    INTEGER NOT NULL DEFAULT 0,
	lead_score      INTEGER NOT NULL DEFAULT 0,
	relevance_score INTEGER NOT NULL DEFAULT 0,
	enrich_score    INTEGER NOT NULL DEFAULT 0,
	enrich_sources  JSONB NOT NULL DEFAULT '[]',
	enriched_at     TIMESTAMPTZ,
	status          TEXT NOT NULL DEFAULT 'new',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_sessions (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	term           TEXT NOT NULL,
	area           TEXT NOT NULL,
	sub_areas      INTEGER NOT NULL DEFAULT 1,
	found          INTEGER NOT NULL DEFAULT 0,
	new_leads      INTEGER NOT NULL DEFAULT 0,
	duplicates     INTEGER NOT NULL DEFAULT 0,
	classification TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_lead_score ON leads(lead_score DESC);
CREATE INDEX IF NOT EXISTS idx_leads_enriched_at ON leads(enriched_at);
CREATE INDEX IF NOT EXISTS idx_sessions_term_area ON search_sessions(term, area);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON search_sessions(started_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

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

const pgLeadColumns = `place_id, name, category, address, phone, website, emails,
	instagram, facebook, whatsapp, rating, review_count,
	lead_score, relevance_score, enrich_score, enrich_sources,
	enriched_at, status, created_at, updated_at`

// pgUpsertLead mirrors the SQLite merge semantics: empty incoming contact and
// enrichment fields keep the stored value.
const pgUpsertLead = `
INSERT INTO leads (
	place_id, name, category, address, phone, website, emails,
	instagram, facebook, whatsapp, rating, review_count,
	lead_score, relevance_score, enrich_score, enrich_sources,
	enriched_at, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (place_id) DO UPDATE SET
	name            = EXCLUDED.name,
	category        = COALESCE(NULLIF(EXCLUDED.category, ''), leads.category),
	address         = COALESCE(NULLIF(EXCLUDED.address, ''), leads.address),
	phone           = COALESCE(NULLIF(EXCLUDED.phone, ''), leads.phone),
	website         = COALESCE(NULLIF(EXCLUDED.website, ''), leads.website),
	emails          = CASE WHEN EXCLUDED.emails != '[]'::jsonb THEN EXCLUDED.emails ELSE leads.emails END,
	instagram       = COALESCE(NULLIF(EXCLUDED.instagram, ''), leads.instagram),
	facebook        = COALESCE(NULLIF(EXCLUDED.facebook, ''), leads.facebook),
	whatsapp        = COALESCE(NULLIF(EXCLUDED.whatsapp, ''), leads.whatsapp),
	rating          = CASE WHEN EXCLUDED.rating > 0 THEN EXCLUDED.rating ELSE leads.rating END,
	review_count    = CASE WHEN EXCLUDED.review_count > 0 THEN EXCLUDED.review_count ELSE leads.review_count END,
	lead_score      = EXCLUDED.lead_score,
	relevance_score = EXCLUDED.relevance_score,
	enrich_score    = CASE WHEN EXCLUDED.enrich_score > 0 THEN EXCLUDED.enrich_score ELSE leads.enrich_score END,
	enrich_sources  = CASE WHEN EXCLUDED.enrich_sources != '[]'::jsonb THEN EXCLUDED.enrich_sources ELSE leads.enrich_sources END,
	enriched_at     = COALESCE(EXCLUDED.enriched_at, leads.enriched_at),
	status          = COALESCE(NULLIF(EXCLUDED.status, ''), leads.status),
	updated_at      = EXCLUDED.updated_at
`

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.LeadRecord) error {
	args, err := pgLeadArgs(lead)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, pgUpsertLead, args...)
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.PlaceID)
}

// bulkLeadColumns are the columns written by the bulk path. On conflict only
// the scoring columns are refreshed; contact and enrichment columns keep the
// stored value so a bulk re-search cannot erase enriched data. The single
// UpsertLead path carries the full merge.
var bulkLeadColumns = []string{
	"place_id", "name", "category", "address", "phone", "website", "emails",
	"instagram", "facebook", "whatsapp", "rating", "review_count",
	"lead_score", "relevance_score", "enrich_score", "enrich_sources",
	"enriched_at", "status", "created_at", "updated_at",
}

var bulkUpdateColumns = []string{
	"name", "rating", "review_count", "lead_score", "relevance_score", "updated_at",
}

func (s *PostgresStore) UpsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(leads))
	for _, lead := range leads {
		args, err := pgLeadArgs(lead)
		if err != nil {
			return 0, err
		}
		rows = append(rows, args)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "leads",
		Columns:      bulkLeadColumns,
		ConflictKeys: []string{"place_id"},
		UpdateCols:   bulkUpdateColumns,
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk upsert leads")
	}
	return int(n), nil
}

// ImportLeads seeds the leads table over the COPY protocol. COPY has no
// conflict handling, so this is for initial loads only; a duplicate place id
// fails the whole batch.
func (s *PostgresStore) ImportLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(leads))
	for _, lead := range leads {
		args, err := pgLeadArgs(lead)
		if err != nil {
			return 0, err
		}
		rows = append(rows, args)
	}

	n, err := db.CopyFrom(ctx, s.pool, "leads", bulkLeadColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import leads")
	}
	return int(n), nil
}

func pgLeadArgs(lead model.LeadRecord) ([]any, error) {
	now := time.Now().UTC()
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	emailsJSON, err := json.Marshal(emptySlice(lead.Emails))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal emails")
	}
	sourcesJSON, err := json.Marshal(emptySlice(lead.EnrichSources))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal enrich sources")
	}

	var enrichedAt any
	if lead.EnrichedAt != nil {
		enrichedAt = lead.EnrichedAt.UTC()
	}

	return []any{
		lead.PlaceID, lead.Name, lead.Category, lead.Address, lead.Phone,
		lead.Website, emailsJSON, lead.Instagram, lead.Facebook,
		lead.WhatsApp, lead.Rating, lead.ReviewCount, lead.LeadScore,
		lead.RelevanceScore, lead.EnrichScore, sourcesJSON,
		enrichedAt, lead.Status, createdAt, now,
	}, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, placeID string) (*model.LeadRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLeadColumns+` FROM leads WHERE place_id = $1`,
		placeID,
	)
	lead, err := scanPgLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("lead not found: %s", placeID)
	}
	return lead, err
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := `SELECT ` + pgLeadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND lead_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	if filter.Enriched != nil {
		if *filter.Enriched {
			query += ` AND enriched_at IS NOT NULL`
		} else {
			query += ` AND enriched_at IS NULL`
		}
	}
	query += ` ORDER BY lead_score DESC, updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.LeadRecord
	for rows.Next() {
		lead, err := scanPgLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) ListPlaceIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT place_id FROM leads`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list place ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan place id")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list place ids iterate")
}

func (s *PostgresStore) RecordSession(ctx context.Context, session model.SessionSummary) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_sessions
		 (id, term, area, sub_areas, found, new_leads, duplicates, classification, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID, session.Term, session.Area, session.SubAreas,
		session.Found, session.NewLeads, session.Duplicates,
		session.Classification, session.StartedAt.UTC(), session.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: record session")
}

func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, term, area, sub_areas, found, new_leads, duplicates, classification, started_at, finished_at
		 FROM search_sessions ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.SessionSummary
	for rows.Next() {
		var sess model.SessionSummary
		if err := rows.Scan(&sess.ID, &sess.Term, &sess.Area, &sess.SubAreas,
			&sess.Found, &sess.NewLeads, &sess.Duplicates,
			&sess.Classification, &sess.StartedAt, &sess.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func scanPgLead(row pgx.Row) (*model.LeadRecord, error) {
	var lead model.LeadRecord
	var emailsJSON, sourcesJSON []byte
	var enrichedAt *time.Time

	err := row.Scan(&lead.PlaceID, &lead.Name, &lead.Category, &lead.Address,
		&lead.Phone, &lead.Website, &emailsJSON, &lead.Instagram,
		&lead.Facebook, &lead.WhatsApp, &lead.Rating, &lead.ReviewCount,
		&lead.LeadScore, &lead.RelevanceScore, &lead.EnrichScore,
		&sourcesJSON, &enrichedAt, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	if err := json.Unmarshal(emailsJSON, &lead.Emails); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal emails")
	}
	if err := json.Unmarshal(sourcesJSON, &lead.EnrichSources); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal enrich sources")
	}
	if len(lead.Emails) == 0 {
		lead.Emails = nil
	}
	if len(lead.EnrichSources) == 0 {
		lead.EnrichSources = nil
	}
	lead.EnrichedAt = enrichedAt
	return &lead, nil
}
