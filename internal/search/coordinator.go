package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/antidetect"
	"github.com/sells-group/prospector/internal/dedupe"
	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/relevance"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/internal/zone"
)

// DefaultMaxResults caps a search run when the caller does not.
const DefaultMaxResults = 60

// DefaultMinRelevance drops candidates the raw source returned as category
// noise.
const DefaultMinRelevance = 20

// DefaultSubAreaMarginPct pads the per-sub-area budget so dedupe losses do
// not starve the final cap.
const DefaultSubAreaMarginPct = 20

// Options controls one search run.
type Options struct {
	MaxResults        int
	MinRelevance      int
	SubAreaMarginPct  int
	Enrich            bool
	EnrichConcurrency int
	EnrichBudget      time.Duration
	MinRating         float64
	RequirePhone      bool
	RequireWebsite    bool
	ExcludeExisting   bool
}

// Deps are the coordinator's collaborators. Orchestrator may be nil, which
// disables enrichment regardless of Options.Enrich.
type Deps struct {
	Partitioner  *zone.Partitioner
	Engine       *dedupe.Engine
	Tracker      *zone.Tracker
	Orchestrator *enrich.Orchestrator
	Store        store.Store
	Source       CandidateSource
	Scorer       relevance.Scorer

	// Delay yields the pause inserted between sub-area fetches. Injectable
	// so tests run without real sleeps; nil uses a 1.5-3.5s jitter.
	Delay func() time.Duration
}

// Coordinator runs the discovery workflow. Sub-areas are always iterated
// strictly sequentially: pacing against the raw source is a deliberate
// throttle, not an incidental limitation.
type Coordinator struct {
	deps Deps
	log  *zap.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(deps Deps) (*Coordinator, error) {
	if deps.Partitioner == nil || deps.Engine == nil || deps.Tracker == nil {
		return nil, eris.New("search: partitioner, engine and tracker are required")
	}
	if deps.Store == nil || deps.Source == nil || deps.Scorer == nil {
		return nil, eris.New("search: store, source and scorer are required")
	}
	if deps.Delay == nil {
		deps.Delay = defaultDelay
	}
	return &Coordinator{
		deps: deps,
		log:  zap.L().With(zap.String("component", "search")),
	}, nil
}

var delayProfiler = antidetect.New()

// defaultDelay paces sub-area fetches like a human browsing, 1.5-3.5s.
func defaultDelay() time.Duration {
	return delayProfiler.Jitter(1500*time.Millisecond, 3500*time.Millisecond)
}

// Search discovers leads for term in area and persists the survivors.
func (c *Coordinator) Search(ctx context.Context, term, area string, opts Options) (*model.SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, eris.New("search: term is required")
	}
	area = strings.TrimSpace(area)
	if area == "" {
		return nil, eris.New("search: area is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.MinRelevance <= 0 {
		opts.MinRelevance = DefaultMinRelevance
	}
	if opts.SubAreaMarginPct <= 0 {
		opts.SubAreaMarginPct = DefaultSubAreaMarginPct
	}

	startedAt := time.Now().UTC()

	part := c.deps.Partitioner.Partition(area)
	c.log.Info("starting search",
		zap.String("term", term),
		zap.String("area", area),
		zap.Bool("partitioned", part.IsPartitioned),
		zap.Int("sub_areas", len(part.Areas)),
	)

	persisted, err := c.deps.Store.ListPlaceIDs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "search: list persisted ids")
	}

	candidates, existingCount, err := c.sweep(ctx, term, part.Areas, persisted, opts)
	if err != nil {
		return nil, err
	}

	// Fuzzy pass: the seen set only catches identifier collisions; the
	// engine catches the same business listed twice under different ids.
	dedupRes := c.deps.Engine.Deduplicate(candidates)
	if len(dedupRes.Duplicates) > 0 {
		c.log.Info("fuzzy duplicates dropped", zap.Int("count", len(dedupRes.Duplicates)))
	}
	candidates = dedupRes.Unique

	candidates = c.scoreAndFilter(candidates, term, opts)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LeadScore > candidates[j].LeadScore
	})
	if len(candidates) > opts.MaxResults {
		candidates = candidates[:opts.MaxResults]
	}

	leads := toLeadRecords(candidates)

	if opts.Enrich && c.deps.Orchestrator != nil {
		leads = c.deps.Orchestrator.EnrichBatch(ctx, leads, area, enrich.Options{
			SearchWebsite: true,
			ScrapeSocial:  true,
			ScrapeWebsite: true,
			MaxDuration:   opts.EnrichBudget,
		}, opts.EnrichConcurrency)
		for i := range leads {
			leads[i].LeadScore = EnrichedLeadScore(leads[i])
		}
		sort.SliceStable(leads, func(i, j int) bool {
			return leads[i].LeadScore > leads[j].LeadScore
		})
	}

	newCount := c.persist(ctx, leads, candidates)

	stats := model.SearchStats{
		Total:         newCount + existingCount,
		NewLeads:      newCount,
		ExistingLeads: existingCount,
	}
	if stats.Total > 0 {
		stats.DuplicatePercentage = float64(existingCount) / float64(stats.Total) * 100
	}

	sat := c.deps.Tracker.Report(term, area, newCount, existingCount)

	session := model.SessionSummary{
		ID:             uuid.New().String(),
		Term:           term,
		Area:           area,
		SubAreas:       len(part.Areas),
		Found:          stats.Total,
		NewLeads:       newCount,
		Duplicates:     existingCount,
		Classification: sat.Classification,
		StartedAt:      startedAt,
		FinishedAt:     time.Now().UTC(),
	}
	if err := c.deps.Store.RecordSession(ctx, session); err != nil {
		c.log.Warn("recording session failed", zap.Error(err))
	}

	result := &model.SearchResult{
		Leads: leads,
		Stats: stats,
	}
	if part.IsPartitioned {
		result.ZoneInfo = &model.ZoneInfo{
			CanonicalKey: part.CanonicalKey,
			Areas:        part.Areas,
			Partitioned:  true,
		}
	}
	if sat.Classification == zone.ClassSaturated || sat.Classification == zone.ClassExhausted {
		result.ZoneSaturation = &model.ZoneSaturation{
			Classification: sat.Classification,
			Recommendation: sat.Recommendation,
			SuggestedAreas: sat.SuggestedAreas,
		}
	}

	c.log.Info("search finished",
		zap.Int("new", newCount),
		zap.Int("existing", existingCount),
		zap.Float64("duplicate_pct", stats.DuplicatePercentage),
		zap.String("classification", sat.Classification),
	)
	return result, nil
}

// sweep iterates sub-areas strictly sequentially with a jittered pause
// between them and accumulates unseen candidates. A sub-area that errors is
// logged and skipped; the sweep continues.
func (c *Coordinator) sweep(ctx context.Context, term string, areas []string, persisted map[string]struct{}, opts Options) ([]model.Candidate, int, error) {
	// Budget per sub-area, with a margin so dedupe losses do not starve
	// the final cap.
	perArea := opts.MaxResults / len(areas)
	margin := perArea * opts.SubAreaMarginPct / 100
	if margin < 1 {
		margin = 1
	}
	perArea += margin

	seen := make(map[string]struct{})
	var accumulated []model.Candidate
	existingCount := 0

	for i, subArea := range areas {
		if i > 0 {
			pause := c.deps.Delay()
			select {
			case <-ctx.Done():
				return nil, 0, eris.Wrap(ctx.Err(), "search: canceled between sub-areas")
			case <-time.After(pause):
			}
		}

		found, err := c.deps.Source.FetchCandidates(ctx, term, subArea, perArea)
		if err != nil {
			c.log.Warn("sub-area fetch failed, continuing",
				zap.String("sub_area", subArea), zap.Error(err))
			continue
		}

		for _, cand := range found {
			if cand.PlaceID == "" {
				continue
			}
			if _, ok := seen[cand.PlaceID]; ok {
				continue
			}
			seen[cand.PlaceID] = struct{}{}

			if _, known := persisted[cand.PlaceID]; known {
				existingCount++
				if opts.ExcludeExisting {
					continue
				}
				cand.AlreadyKnown = true
			}
			accumulated = append(accumulated, cand)
		}
	}
	return accumulated, existingCount, nil
}

// scoreAndFilter computes relevance and lead scores, then applies the
// relevance floor and the optional quality filters.
func (c *Coordinator) scoreAndFilter(candidates []model.Candidate, term string, opts Options) []model.Candidate {
	out := candidates[:0]
	for _, cand := range candidates {
		cand.RelevanceScore = c.deps.Scorer.Score(cand.Category, cand.Name, term)
		if cand.RelevanceScore < opts.MinRelevance {
			continue
		}
		if opts.MinRating > 0 && cand.Rating < opts.MinRating {
			continue
		}
		if opts.RequirePhone && cand.Phone == "" {
			continue
		}
		if opts.RequireWebsite && cand.Website == "" {
			continue
		}
		cand.LeadScore = LeadScore(cand)
		out = append(out, cand)
	}
	return out
}

// persist upserts leads one by one, tolerating individual failures, and
// returns how many not-already-known records were written.
func (c *Coordinator) persist(ctx context.Context, leads []model.LeadRecord, candidates []model.Candidate) int {
	known := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		known[cand.PlaceID] = cand.AlreadyKnown
	}

	newCount := 0
	for _, lead := range leads {
		if err := c.deps.Store.UpsertLead(ctx, lead); err != nil {
			c.log.Warn("upsert failed, continuing",
				zap.String("place_id", lead.PlaceID), zap.Error(err))
			continue
		}
		if !known[lead.PlaceID] {
			newCount++
		}
	}
	return newCount
}

func toLeadRecords(candidates []model.Candidate) []model.LeadRecord {
	leads := make([]model.LeadRecord, 0, len(candidates))
	for _, cand := range candidates {
		leads = append(leads, model.LeadRecord{
			PlaceID:        cand.PlaceID,
			Name:           cand.Name,
			Category:       cand.Category,
			Address:        cand.Address,
			Phone:          cand.Phone,
			Website:        cand.Website,
			Instagram:      cand.Instagram,
			Facebook:       cand.Facebook,
			Rating:         cand.Rating,
			ReviewCount:    cand.ReviewCount,
			LeadScore:      cand.LeadScore,
			RelevanceScore: cand.RelevanceScore,
			Status:         "new",
		})
	}
	return leads
}
