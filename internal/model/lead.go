// Package model defines the core data types shared across the discovery and
// enrichment pipeline.
package model

import "time"

// Candidate represents a raw business discovered by the candidate source.
// It is ephemeral: it exists only within a single search run until promoted
// to a LeadRecord.
type Candidate struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Address     string  `json:"address,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Website     string  `json:"website,omitempty"`
	Instagram   string  `json:"instagram,omitempty"`
	Facebook    string  `json:"facebook,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
	Category    string  `json:"category,omitempty"`

	// Run-time tags, filled by the coordinator.
	AlreadyKnown   bool `json:"already_known,omitempty"`
	LeadScore      int  `json:"lead_score,omitempty"`
	RelevanceScore int  `json:"relevance_score,omitempty"`
}

// LeadRecord is the persisted, deduplicated business entity. Exactly one
// record exists per PlaceID; upsert is the only legal write path.
type LeadRecord struct {
	PlaceID        string     `json:"place_id" db:"place_id"`
	Name           string     `json:"name" db:"name"`
	Category       string     `json:"category,omitempty" db:"category"`
	Address        string     `json:"address,omitempty" db:"address"`
	Phone          string     `json:"phone,omitempty" db:"phone"`
	Website        string     `json:"website,omitempty" db:"website"`
	Emails         []string   `json:"emails,omitempty" db:"emails"`
	Instagram      string     `json:"instagram,omitempty" db:"instagram"`
	Facebook       string     `json:"facebook,omitempty" db:"facebook"`
	WhatsApp       string     `json:"whatsapp,omitempty" db:"whatsapp"`
	Rating         float64    `json:"rating,omitempty" db:"rating"`
	ReviewCount    int        `json:"review_count,omitempty" db:"review_count"`
	LeadScore      int        `json:"lead_score" db:"lead_score"`
	RelevanceScore int        `json:"relevance_score" db:"relevance_score"`
	EnrichScore    int        `json:"enrich_score,omitempty" db:"enrich_score"`
	EnrichSources  []string   `json:"enrich_sources,omitempty" db:"enrich_sources"`
	EnrichedAt     *time.Time `json:"enriched_at,omitempty" db:"enriched_at"`
	Status         string     `json:"status,omitempty" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// MatchSignal identifies which rule classified two records as duplicates.
type MatchSignal string

const (
	MatchSamePhone   MatchSignal = "same_phone"
	MatchSameWebsite MatchSignal = "same_website"
	MatchExactName   MatchSignal = "exact_name"
	MatchSimilarName MatchSignal = "similar_name"
	MatchSameAddress MatchSignal = "same_address"
)

// DuplicateMatch is the transient result of comparing two records.
type DuplicateMatch struct {
	IsDuplicate bool        `json:"is_duplicate"`
	Signal      MatchSignal `json:"signal,omitempty"`
	Similarity  int         `json:"similarity"` // 0..100
	Name        string      `json:"name,omitempty"`
	MatchedWith string      `json:"matched_with,omitempty"`
}
