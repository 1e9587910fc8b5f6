// Package scrape provides the chained page-fetching tiers used by the
// enrichment pipeline: a free local HTTP fetch, a cheap textual reader, and
// a heavier rendering-capable fallback.
package scrape

import (
	"context"

	"github.com/sells-group/prospector/internal/model"
)

// Result holds a scraped page with its source tier.
type Result struct {
	Page   model.CrawledPage
	Source string // e.g. "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
