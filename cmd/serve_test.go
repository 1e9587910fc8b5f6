package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/dedupe"
	"github.com/sells-group/prospector/internal/enrich"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/relevance"
	"github.com/sells-group/prospector/internal/search"
	"github.com/sells-group/prospector/internal/store"
	"github.com/sells-group/prospector/internal/zone"
)

type stubSource struct {
	candidates []model.Candidate
}

func (s *stubSource) FetchCandidates(context.Context, string, string, int) ([]model.Candidate, error) {
	return s.candidates, nil
}

type okVerifier struct{}

func (okVerifier) Verify(context.Context, string) (bool, error) { return true, nil }

type emailSites struct{}

func (emailSites) Scan(context.Context, string) (*enrich.SiteContacts, error) {
	return &enrich.SiteContacts{Emails: []string{"hola@cantina.com.ar"}}, nil
}

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()

	cfg = &config.Config{}
	cfg.Search.MinRelevance = 20
	cfg.Search.EnrichConcurrency = 2
	cfg.Enrich.BatchBudgetMs = 2000

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	table := zone.DefaultTable()
	tracker := zone.NewTracker(table)
	orchestrator := enrich.NewOrchestrator(okVerifier{}, nil, nil, emailSites{})

	coordinator, err := search.NewCoordinator(search.Deps{
		Partitioner:  zone.NewPartitioner(table),
		Engine:       dedupe.NewEngine(dedupe.DefaultThreshold),
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Store:        st,
		Source: &stubSource{candidates: []model.Candidate{{
			PlaceID:     "p1",
			Name:        "Cantina Palermo",
			Category:    "restaurant",
			Phone:       "+54 11 4832-1098",
			Website:     "https://cantina.com.ar",
			Rating:      4.4,
			ReviewCount: 80,
		}}},
		Scorer: relevance.NewKeywordScorer(nil),
		Delay:  func() time.Duration { return 0 },
	})
	require.NoError(t, err)

	return &appEnv{
		Store:        st,
		Partitioner:  zone.NewPartitioner(table),
		Tracker:      tracker,
		Orchestrator: orchestrator,
		Coordinator:  coordinator,
	}
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeSearch(t *testing.T) {
	router := newRouter(newTestEnv(t))

	body := `{"term":"restaurante","area":"Palermo Soho, Buenos Aires"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var result model.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Stats.NewLeads)
	require.Len(t, result.Leads, 1)
	assert.Equal(t, "Cantina Palermo", result.Leads[0].Name)
}

func TestServeSearchValidation(t *testing.T) {
	router := newRouter(newTestEnv(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"term":"restaurante"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeEnrich(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	require.NoError(t, env.Store.UpsertLead(context.Background(), model.LeadRecord{
		PlaceID: "p1",
		Name:    "Cantina Palermo",
		Website: "https://cantina.com.ar",
		Status:  "new",
	}))

	body := `{"place_ids":["p1"],"area":"Palermo, Buenos Aires"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/enrich", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var leads []model.LeadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, []string{"hola@cantina.com.ar"}, leads[0].Emails)

	stored, err := env.Store.GetLead(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hola@cantina.com.ar"}, stored.Emails)
}

func TestServeEnrichUnknownLead(t *testing.T) {
	router := newRouter(newTestEnv(t))

	body := `{"place_ids":["missing"]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/enrich", strings.NewReader(body)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeZonesStatus(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	_, err := env.Coordinator.Search(context.Background(), "restaurante", "Palermo Soho, Buenos Aires", search.Options{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/zones/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var states []model.ZoneState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, "restaurante", states[0].Term)
	assert.Equal(t, zone.ClassFresh, states[0].Classification)
}

func TestServeLeads(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)

	require.NoError(t, env.Store.UpsertLead(context.Background(), model.LeadRecord{
		PlaceID: "p1", Name: "Cantina Palermo", Status: "new",
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads?status=new", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var leads []model.LeadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "p1", leads[0].PlaceID)
}
