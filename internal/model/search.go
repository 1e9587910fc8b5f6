package model

import "time"

// SearchStats summarizes one search run.
type SearchStats struct {
	Total               int     `json:"total"`
	NewLeads            int     `json:"new_leads"`
	ExistingLeads       int     `json:"existing_leads"`
	DuplicatePercentage float64 `json:"duplicate_percentage"`
}

// ZoneInfo describes how the requested area was partitioned.
type ZoneInfo struct {
	CanonicalKey string   `json:"canonical_key,omitempty"`
	Areas        []string `json:"areas"`
	Partitioned  bool     `json:"partitioned"`
}

// ZoneSaturation carries the saturation verdict surfaced to the caller when
// a zone is running dry.
type ZoneSaturation struct {
	Classification string   `json:"classification"`
	Recommendation string   `json:"recommendation"`
	SuggestedAreas []string `json:"suggested_areas,omitempty"`
}

// SearchResult is what a search run returns to the caller.
type SearchResult struct {
	Leads          []LeadRecord    `json:"leads"`
	Stats          SearchStats     `json:"stats"`
	ZoneInfo       *ZoneInfo       `json:"zone_info,omitempty"`
	ZoneSaturation *ZoneSaturation `json:"zone_saturation,omitempty"`
}

// ZoneState tracks the cumulative history of one (term, area) pair.
type ZoneState struct {
	Term            string    `json:"term"`
	Area            string    `json:"area"`
	Searches        int       `json:"searches"`
	TotalNew        int       `json:"total_new"`
	TotalDuplicates int       `json:"total_duplicates"`
	LastSearch      time.Time `json:"last_search"`
	Classification  string    `json:"classification"`
}

// SessionSummary records one completed search session for durable history.
type SessionSummary struct {
	ID             string    `json:"id" db:"id"`
	Term           string    `json:"term" db:"term"`
	Area           string    `json:"area" db:"area"`
	SubAreas       int       `json:"sub_areas" db:"sub_areas"`
	Found          int       `json:"found" db:"found"`
	NewLeads       int       `json:"new_leads" db:"new_leads"`
	Duplicates     int       `json:"duplicates" db:"duplicates"`
	Classification string    `json:"classification,omitempty" db:"classification"`
	StartedAt      time.Time `json:"started_at" db:"started_at"`
	FinishedAt     time.Time `json:"finished_at" db:"finished_at"`
}

// CrawledPage is a fetched page in plaintext form, produced by the scrape
// chain and consumed by the contact extractors.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	HTML       string `json:"html,omitempty"`
	Text       string `json:"text"`
	StatusCode int    `json:"status_code,omitempty"`
}
