// Package search runs the top-level discovery workflow: partition the area,
// fetch candidates sub-area by sub-area, deduplicate, score, optionally
// enrich, persist, and report zone saturation.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/pkg/places"
)

// CandidateSource supplies raw business candidates for a term in an area.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, term, area string, maxResults int) ([]model.Candidate, error)
}

// PlacesSource adapts the Places text-search client to CandidateSource,
// rate-limited so sequential sub-area sweeps stay under the API quota.
type PlacesSource struct {
	client        places.Client
	limiter       *rate.Limiter
	maxPerRequest int
}

// NewPlacesSource creates a PlacesSource. rps bounds requests per second;
// rps <= 0 means 1 request per second.
func NewPlacesSource(client places.Client, rps float64) *PlacesSource {
	if rps <= 0 {
		rps = 1
	}
	return &PlacesSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// WithMaxPerRequest caps how many results a single API call may request,
// matching the upstream page-size limit.
func (s *PlacesSource) WithMaxPerRequest(n int) *PlacesSource {
	if n > 0 {
		s.maxPerRequest = n
	}
	return s
}

// FetchCandidates queries the text-search API with a Spanish-form query
// ("<term> en <area>") and maps the results.
func (s *PlacesSource) FetchCandidates(ctx context.Context, term, area string, maxResults int) ([]model.Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places source: rate limit wait")
	}

	query := term
	if area != "" {
		query = term + " en " + area
	}
	if s.maxPerRequest > 0 && maxResults > s.maxPerRequest {
		maxResults = s.maxPerRequest
	}

	resp, err := s.client.TextSearch(ctx, query, maxResults)
	if err != nil {
		return nil, eris.Wrapf(err, "places source: text search %q", query)
	}

	out := make([]model.Candidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		out = append(out, model.Candidate{
			PlaceID:     p.ID,
			Name:        p.DisplayName.Text,
			Address:     p.FormattedAddress,
			Phone:       p.NationalPhoneNumber,
			Website:     p.WebsiteURI,
			Rating:      p.Rating,
			ReviewCount: p.UserRatingCount,
			Category:    p.PrimaryType,
		})
	}
	return out, nil
}
