package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/search"
	"github.com/sells-group/prospector/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for search and enrichment requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API routes on the wired environment.
func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Term            string  `json:"term"`
			Area            string  `json:"area"`
			MaxResults      int     `json:"max_results"`
			Enrich          bool    `json:"enrich"`
			ExcludeExisting bool    `json:"exclude_existing"`
			MinRating       float64 `json:"min_rating"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Term == "" || body.Area == "" {
			writeError(w, http.StatusBadRequest, "term and area are required")
			return
		}

		result, err := env.Coordinator.Search(req.Context(), body.Term, body.Area, search.Options{
			MaxResults:        body.MaxResults,
			MinRelevance:      cfg.Search.MinRelevance,
			SubAreaMarginPct:  cfg.Search.SubAreaMarginPct,
			Enrich:            body.Enrich,
			EnrichConcurrency: cfg.Search.EnrichConcurrency,
			EnrichBudget:      time.Duration(cfg.Enrich.BatchBudgetMs) * time.Millisecond,
			MinRating:         body.MinRating,
			ExcludeExisting:   body.ExcludeExisting,
		})
		if err != nil {
			zap.L().Error("search request failed",
				zap.String("term", body.Term), zap.String("area", body.Area), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}

		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/enrich", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			PlaceIDs []string `json:"place_ids"`
			Area     string   `json:"area"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.PlaceIDs) == 0 {
			writeError(w, http.StatusBadRequest, "place_ids is required")
			return
		}

		ctx := req.Context()
		leads := make([]model.LeadRecord, 0, len(body.PlaceIDs))
		for _, placeID := range body.PlaceIDs {
			lead, err := env.Store.GetLead(ctx, placeID)
			if err != nil {
				writeError(w, http.StatusNotFound, fmt.Sprintf("lead %s not found", placeID))
				return
			}
			leads = append(leads, *lead)
		}

		enriched := env.Orchestrator.EnrichBatch(ctx, leads, body.Area,
			singleEnrichOptions(), cfg.Search.EnrichConcurrency)
		for i := range enriched {
			enriched[i].LeadScore = search.EnrichedLeadScore(enriched[i])
			if err := env.Store.UpsertLead(ctx, enriched[i]); err != nil {
				zap.L().Warn("persisting enriched lead failed",
					zap.String("place_id", enriched[i].PlaceID), zap.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, enriched)
	})

	r.Get("/zones/status", func(w http.ResponseWriter, req *http.Request) {
		states := env.Tracker.Snapshot()
		sort.Slice(states, func(i, j int) bool {
			if states[i].Term != states[j].Term {
				return states[i].Term < states[j].Term
			}
			return states[i].Area < states[j].Area
		})
		writeJSON(w, http.StatusOK, states)
	})

	r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
		filter := store.LeadFilter{Limit: 100}
		if status := req.URL.Query().Get("status"); status != "" {
			filter.Status = status
		}
		leads, err := env.Store.ListLeads(req.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "listing leads failed")
			return
		}
		writeJSON(w, http.StatusOK, leads)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
