package zone

import (
	"sync"
	"time"

	"github.com/sells-group/prospector/internal/model"
)

// Zone freshness classifications, from productive to spent.
const (
	ClassFresh     = "fresh"
	ClassWarm      = "warm"
	ClassSaturated = "saturated"
	ClassExhausted = "exhausted"
)

// SaturationResult is the verdict for one reported search.
type SaturationResult struct {
	Classification  string   `json:"classification"`
	DuplicateRate   float64  `json:"duplicate_rate"`
	AvgNewPerSearch float64  `json:"avg_new_per_search"`
	Searches        int      `json:"searches"`
	Recommendation  string   `json:"recommendation"`
	SuggestedAreas  []string `json:"suggested_areas,omitempty"`
}

// Tracker records per (term, area) search history and classifies freshness.
// Safe for concurrent use; the clock is injectable for tests.
type Tracker struct {
	mu        sync.Mutex
	states    map[string]*model.ZoneState
	adjacency map[string][]string
	fallback  []string
	now       func() time.Time
}

// NewTracker creates a Tracker using the table's adjacency graph and fallback
// suggestions.
func NewTracker(table *Table) *Tracker {
	t := &Tracker{
		states: make(map[string]*model.ZoneState),
		now:    time.Now,
	}
	if table != nil {
		t.adjacency = table.Adjacency
		t.fallback = table.Fallback
	}
	return t
}

// WithNow sets a fixed clock for testing.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Report records the outcome of one search of (term, area) and returns the
// updated classification with a recommendation.
func (t *Tracker) Report(term, area string, newCount, duplicateCount int) SaturationResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := normalizeKey(term) + "|" + normalizeKey(area)
	st, ok := t.states[key]
	if !ok {
		st = &model.ZoneState{Term: normalizeKey(term), Area: normalizeKey(area)}
		t.states[key] = st
	}

	st.Searches++
	st.TotalNew += newCount
	st.TotalDuplicates += duplicateCount
	st.LastSearch = t.now()

	var dupRate float64
	if newCount+duplicateCount > 0 {
		dupRate = float64(duplicateCount) / float64(duplicateCount+newCount) * 100
	}

	st.Classification = classify(dupRate, st.Searches)

	res := SaturationResult{
		Classification:  st.Classification,
		DuplicateRate:   dupRate,
		AvgNewPerSearch: float64(st.TotalNew) / float64(st.Searches),
		Searches:        st.Searches,
		Recommendation:  recommendation(st.Classification),
	}

	if st.Classification == ClassSaturated || st.Classification == ClassExhausted {
		res.SuggestedAreas = t.suggestLocked(area)
	}

	return res
}

// State returns the tracked state for a (term, area) pair, if any.
func (t *Tracker) State(term, area string) (model.ZoneState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[normalizeKey(term)+"|"+normalizeKey(area)]
	if !ok {
		return model.ZoneState{}, false
	}
	return *st, true
}

// Snapshot returns a copy of all tracked zone states.
func (t *Tracker) Snapshot() []model.ZoneState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ZoneState, 0, len(t.states))
	for _, st := range t.states {
		out = append(out, *st)
	}
	return out
}

// Prune drops states whose last search is older than idle. Returns the number
// of states removed. Pruning is never automatic.
func (t *Tracker) Prune(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-idle)
	removed := 0
	for key, st := range t.states {
		if st.LastSearch.Before(cutoff) {
			delete(t.states, key)
			removed++
		}
	}
	return removed
}

// suggestLocked returns neighboring areas that are not themselves spent.
// Caller must hold t.mu.
func (t *Tracker) suggestLocked(area string) []string {
	neighbors, ok := t.adjacency[area]
	if !ok {
		// Try a case-insensitive lookup before falling back.
		for k, v := range t.adjacency {
			if normalizeKey(k) == normalizeKey(area) {
				neighbors = v
				ok = true
				break
			}
		}
	}
	if !ok {
		return append([]string{}, t.fallback...)
	}

	out := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		spent := false
		for _, st := range t.states {
			if normalizeKey(n) == st.Area &&
				(st.Classification == ClassSaturated || st.Classification == ClassExhausted) {
				spent = true
				break
			}
		}
		if !spent {
			out = append(out, n)
		}
	}
	return out
}

func classify(dupRate float64, searches int) string {
	switch {
	case dupRate >= 90 && searches >= 3:
		return ClassExhausted
	case dupRate >= 70 && searches >= 2:
		return ClassSaturated
	case dupRate >= 40:
		return ClassWarm
	default:
		return ClassFresh
	}
}

func recommendation(class string) string {
	switch class {
	case ClassExhausted:
		return "Zona agotada: casi todos los resultados ya existen. Buscar en las zonas vecinas sugeridas o cambiar el término."
	case ClassSaturated:
		return "Zona saturada: la mayoría de los resultados son duplicados. Conviene expandir hacia zonas vecinas."
	case ClassWarm:
		return "Zona templada: todavía aparecen leads nuevos, pero el rendimiento está bajando."
	default:
		return "Zona fresca: seguir buscando aquí."
	}
}
