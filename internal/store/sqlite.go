package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospector/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id        TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	emails          TEXT NOT NULL DEFAULT '[]',
	instagram       TEXT NOT NULL DEFAULT '',
	facebook        TEXT NOT NULL DEFAULT '',
	whatsapp        TEXT NOT NULL DEFAULT '',
	rating          REAL NOT NULL DEFAULT 0,
	review_count    INTEGER NOT NULL DEFAULT 0,
	lead_score      INTEGER NOT NULL DEFAULT 0,
	relevance_score INTEGER NOT NULL DEFAULT 0,
	enrich_score    INTEGER NOT NULL DEFAULT 0,
	enrich_sources  TEXT NOT NULL DEFAULT '[]',
	enriched_at     DATETIME,
	status          TEXT NOT NULL DEFAULT 'new',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_sessions (
	id             TEXT PRIMARY KEY,
	term           TEXT NOT NULL,
	area           TEXT NOT NULL,
	sub_areas      INTEGER NOT NULL DEFAULT 1,
	found          INTEGER NOT NULL DEFAULT 0,
	new_leads      INTEGER NOT NULL DEFAULT 0,
	duplicates     INTEGER NOT NULL DEFAULT 0,
	classification TEXT NOT NULL DEFAULT '',
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_lead_score ON leads(lead_score DESC);
CREATE INDEX IF NOT EXISTS idx_leads_enriched_at ON leads(enriched_at);
CREATE INDEX IF NOT EXISTS idx_sessions_term_area ON search_sessions(term, area);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON search_sessions(started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteUpsertLead merges on conflict: contact and enrichment fields keep the
// stored value when the incoming row is empty, so a fresh search never erases
// data a previous enrichment paid for.
const sqliteUpsertLead = `
INSERT INTO leads (
	place_id, name, category, address, phone, website, emails,
	instagram, facebook, whatsapp, rating, review_count,
	lead_score, relevance_score, enrich_score, enrich_sources,
	enriched_at, status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(place_id) DO UPDATE SET
	name            = excluded.name,
	category        = COALESCE(NULLIF(excluded.category, ''), leads.category),
	address         = COALESCE(NULLIF(excluded.address, ''), leads.address),
	phone           = COALESCE(NULLIF(excluded.phone, ''), leads.phone),
	website         = COALESCE(NULLIF(excluded.website, ''), leads.website),
	emails          = CASE WHEN excluded.emails != '[]' THEN excluded.emails ELSE leads.emails END,
	instagram       = COALESCE(NULLIF(excluded.instagram, ''), leads.instagram),
	facebook        = COALESCE(NULLIF(excluded.facebook, ''), leads.facebook),
	whatsapp        = COALESCE(NULLIF(excluded.whatsapp, ''), leads.whatsapp),
	rating          = CASE WHEN excluded.rating > 0 THEN excluded.rating ELSE leads.rating END,
	review_count    = CASE WHEN excluded.review_count > 0 THEN excluded.review_count ELSE leads.review_count END,
	lead_score      = excluded.lead_score,
	relevance_score = excluded.relevance_score,
	enrich_score    = CASE WHEN excluded.enrich_score > 0 THEN excluded.enrich_score ELSE leads.enrich_score END,
	enrich_sources  = CASE WHEN excluded.enrich_sources != '[]' THEN excluded.enrich_sources ELSE leads.enrich_sources END,
	enriched_at     = COALESCE(excluded.enriched_at, leads.enriched_at),
	status          = COALESCE(NULLIF(excluded.status, ''), leads.status),
	updated_at      = excluded.updated_at
`

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.LeadRecord) error {
	args, err := sqliteLeadArgs(lead)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqliteUpsertLead, args...)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.PlaceID)
}

// ImportLeads has no COPY equivalent on SQLite; the transactional upsert
// batch is fast enough for local seeding.
func (s *SQLiteStore) ImportLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	return s.UpsertLeads(ctx, leads)
}

func (s *SQLiteStore) UpsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertLead)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	count := 0
	for _, lead := range leads {
		args, err := sqliteLeadArgs(lead)
		if err != nil {
			return count, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return count, eris.Wrapf(err, "sqlite: upsert lead %s", lead.PlaceID)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, eris.Wrap(err, "sqlite: commit tx")
	}
	return count, nil
}

func sqliteLeadArgs(lead model.LeadRecord) ([]any, error) {
	now := time.Now().UTC()
	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	emailsJSON, err := json.Marshal(emptySlice(lead.Emails))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal emails")
	}
	sourcesJSON, err := json.Marshal(emptySlice(lead.EnrichSources))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal enrich sources")
	}

	var enrichedAt any
	if lead.EnrichedAt != nil {
		enrichedAt = lead.EnrichedAt.UTC()
	}

	return []any{
		lead.PlaceID, lead.Name, lead.Category, lead.Address, lead.Phone,
		lead.Website, string(emailsJSON), lead.Instagram, lead.Facebook,
		lead.WhatsApp, lead.Rating, lead.ReviewCount, lead.LeadScore,
		lead.RelevanceScore, lead.EnrichScore, string(sourcesJSON),
		enrichedAt, lead.Status, createdAt, now,
	}, nil
}

const sqliteLeadColumns = `place_id, name, category, address, phone, website, emails,
	instagram, facebook, whatsapp, rating, review_count,
	lead_score, relevance_score, enrich_score, enrich_sources,
	enriched_at, status, created_at, updated_at`

func (s *SQLiteStore) GetLead(ctx context.Context, placeID string) (*model.LeadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteLeadColumns+` FROM leads WHERE place_id = ?`,
		placeID,
	)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("lead not found: %s", placeID)
	}
	return lead, err
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := `SELECT ` + sqliteLeadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.MinScore > 0 {
		query += ` AND lead_score >= ?`
		args = append(args, filter.MinScore)
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
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.LeadRecord
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) ListPlaceIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT place_id FROM leads`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list place ids")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place id")
		}
		ids[id] = struct{}{}
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list place ids iterate")
}

func (s *SQLiteStore) RecordSession(ctx context.Context, session model.SessionSummary) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_sessions
		 (id, term, area, sub_areas, found, new_leads, duplicates, classification, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Term, session.Area, session.SubAreas,
		session.Found, session.NewLeads, session.Duplicates,
		session.Classification, session.StartedAt.UTC(), session.FinishedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: record session")
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, area, sub_areas, found, new_leads, duplicates, classification, started_at, finished_at
		 FROM search_sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.SessionSummary
	for rows.Next() {
		var sess model.SessionSummary
		if err := rows.Scan(&sess.ID, &sess.Term, &sess.Area, &sess.SubAreas,
			&sess.Found, &sess.NewLeads, &sess.Duplicates,
			&sess.Classification, &sess.StartedAt, &sess.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		sessions = append(sessions, sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

// helpers

// emptySlice keeps JSON columns as '[]' instead of 'null' for nil slices.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.LeadRecord, error) {
	var lead model.LeadRecord
	var emailsJSON, sourcesJSON string
	var enrichedAt sql.NullTime

	err := row.Scan(&lead.PlaceID, &lead.Name, &lead.Category, &lead.Address,
		&lead.Phone, &lead.Website, &emailsJSON, &lead.Instagram,
		&lead.Facebook, &lead.WhatsApp, &lead.Rating, &lead.ReviewCount,
		&lead.LeadScore, &lead.RelevanceScore, &lead.EnrichScore,
		&sourcesJSON, &enrichedAt, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	if err := json.Unmarshal([]byte(emailsJSON), &lead.Emails); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal emails")
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &lead.EnrichSources); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal enrich sources")
	}
	if len(lead.Emails) == 0 {
		lead.Emails = nil
	}
	if len(lead.EnrichSources) == 0 {
		lead.EnrichSources = nil
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		lead.EnrichedAt = &t
	}
	return &lead, nil
}
