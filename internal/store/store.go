// Package store persists leads and search sessions behind a driver-agnostic
// interface, with SQLite for local use and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/prospector/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status   string `json:"status,omitempty"`
	MinScore int    `json:"min_score,omitempty"`
	Enriched *bool  `json:"enriched,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the prospecting pipeline.
// UpsertLead is the only legal write path for leads: exactly one row exists
// per place ID, and repeated writes merge rather than duplicate.
type Store interface {
	// Leads
	UpsertLead(ctx context.Context, lead model.LeadRecord) error
	UpsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error)
	// ImportLeads seeds leads in bulk. It assumes the place ids are not
	// present yet; Postgres uses the COPY protocol for speed.
	ImportLeads(ctx context.Context, leads []model.LeadRecord) (int, error)
	GetLead(ctx context.Context, placeID string) (*model.LeadRecord, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error)
	ListPlaceIDs(ctx context.Context) (map[string]struct{}, error)

	// Sessions
	RecordSession(ctx context.Context, session model.SessionSummary) error
	ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
