package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/antidetect"
	"github.com/sells-group/prospector/internal/dedupe"
	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/relevance"
	"github.com/sells-group/prospector/internal/scrape"
	"github.com/sells-group/prospector/internal/search"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/internal/zone"
	"github.com/sells-group/prospector/pkg/firecrawl"
	"github.com/sells-group/prospector/pkg/jina"
	"github.com/sells-group/prospector/pkg/places"
)

// appEnv bundles the wired subsystems behind the CLI commands.
type appEnv struct {
	Store        store.Store
	Partitioner  *zone.Partitioner
	Tracker      *zone.Tracker
	Orchestrator *enrich.Orchestrator
	Coordinator  *search.Coordinator
}

func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "", "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func loadZoneTable() (*zone.Table, error) {
	if cfg.Zones.File == "" {
		return zone.DefaultTable(), nil
	}
	return zone.LoadTable(cfg.Zones.File)
}

// initApp wires the full pipeline from config. Retries and the circuit
// breaker live here, around the fetch clients, so the core stays
// single-attempt.
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	table, err := loadZoneTable()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load zone table")
	}
	partitioner := zone.NewPartitioner(table)
	tracker := zone.NewTracker(table)

	profiler := antidetect.New()

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)

	var fcClient firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		fcClient = newGuardedFirecrawl(firecrawl.NewClient(cfg.Firecrawl.Key,
			firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)))
	}

	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(profiler).
			WithTimeout(time.Duration(cfg.Scrape.TimeoutSecs) * time.Second).
			WithRetries(cfg.Scrape.Retries),
		scrape.NewJinaAdapter(jinaClient),
	}
	if fcClient != nil {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fcClient))
	}
	chain := scrape.NewChain(scrape.NewPathMatcher(cfg.Scrape.ExcludePaths), scrapers...)

	verifier := enrich.NewHTTPVerifier(profiler).
		WithTimeout(time.Duration(cfg.Enrich.VerifyTimeoutMs) * time.Millisecond)
	searcher := enrich.NewJinaSearcher(jinaClient, cfg.Search.Country)
	social := enrich.NewTieredSocialFetcher(jinaClient, fcClient)
	sites := enrich.NewChainSiteScanner(chain, cfg.Scrape.MaxConcurrent).
		WithMaxPages(cfg.Enrich.MaxContactPages)
	orchestrator := enrich.NewOrchestrator(verifier, searcher, social, sites)

	placesClient := newRetryingPlaces(places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL)))
	source := search.NewPlacesSource(placesClient, cfg.Places.RateLimitRPS).
		WithMaxPerRequest(cfg.Places.MaxPerRequest)

	delayMin := time.Duration(cfg.Search.DelayMinMs) * time.Millisecond
	delayMax := time.Duration(cfg.Search.DelayMaxMs) * time.Millisecond

	coordinator, err := search.NewCoordinator(search.Deps{
		Partitioner:  partitioner,
		Engine:       dedupe.NewEngine(cfg.Dedupe.Threshold),
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Store:        st,
		Source:       source,
		Scorer:       relevance.NewKeywordScorer(nil),
		Delay: func() time.Duration {
			return profiler.Jitter(delayMin, delayMax)
		},
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &appEnv{
		Store:        st,
		Partitioner:  partitioner,
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Coordinator:  coordinator,
	}, nil
}

// batchEnrichOptions builds the orchestrator options for a batch run from
// config.
func batchEnrichOptions() enrich.Options {
	return enrich.Options{
		SearchWebsite: true,
		ScrapeSocial:  true,
		ScrapeWebsite: true,
		MaxDuration:   time.Duration(cfg.Enrich.BatchBudgetMs) * time.Millisecond,
	}
}

// singleEnrichOptions is batchEnrichOptions with the roomier per-lead budget
// used when the caller named explicit place ids.
func singleEnrichOptions() enrich.Options {
	opts := batchEnrichOptions()
	opts.MaxDuration = time.Duration(cfg.Enrich.SingleBudgetMs) * time.Millisecond
	return opts
}
