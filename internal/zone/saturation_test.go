package zone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestReportFresh(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	res := tr.Report("restaurante", "Palermo, Buenos Aires", 18, 2)
	assert.Equal(t, ClassFresh, res.Classification)
	assert.InDelta(t, 10.0, res.DuplicateRate, 0.01)
	assert.Equal(t, 1, res.Searches)
	assert.Empty(t, res.SuggestedAreas)
	assert.NotEmpty(t, res.Recommendation)
}

func TestReportWarmSingleSearch(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	res := tr.Report("restaurante", "Recoleta, Buenos Aires", 5, 5)
	assert.Equal(t, ClassWarm, res.Classification)
	assert.InDelta(t, 50.0, res.DuplicateRate, 0.01)
}

func TestReportSaturatedNeedsTwoSearches(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	res := tr.Report("restaurante", "Palermo, Buenos Aires", 2, 8)
	// High duplicate rate but only one search: still warm.
	assert.Equal(t, ClassWarm, res.Classification)

	res = tr.Report("restaurante", "Palermo, Buenos Aires", 2, 8)
	assert.Equal(t, ClassSaturated, res.Classification)
	assert.NotEmpty(t, res.SuggestedAreas)
}

func TestReportExhaustedNeedsThreeSearches(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	tr.Report("cafe", "Palermo, Buenos Aires", 1, 9)
	tr.Report("cafe", "Palermo, Buenos Aires", 0, 10)
	res := tr.Report("cafe", "Palermo, Buenos Aires", 0, 10)
	assert.Equal(t, ClassExhausted, res.Classification)
}

func TestReportZeroCounts(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	res := tr.Report("restaurante", "Flores, Buenos Aires", 0, 0)
	assert.Equal(t, ClassFresh, res.Classification)
	assert.Zero(t, res.DuplicateRate)
}

func TestSuggestionsSkipSpentNeighbors(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	// Exhaust a neighbor of Palermo first.
	tr.Report("restaurante", "Villa Crespo, Buenos Aires", 1, 9)
	tr.Report("restaurante", "Villa Crespo, Buenos Aires", 0, 10)
	tr.Report("restaurante", "Villa Crespo, Buenos Aires", 0, 10)

	tr.Report("restaurante", "Palermo, Buenos Aires", 2, 8)
	res := tr.Report("restaurante", "Palermo, Buenos Aires", 1, 9)
	assert.Equal(t, ClassSaturated, res.Classification)
	assert.NotContains(t, res.SuggestedAreas, "Villa Crespo, Buenos Aires")
	assert.Contains(t, res.SuggestedAreas, "Colegiales, Buenos Aires")
}

func TestSuggestionsFallbackWithoutAdjacency(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	tr.Report("restaurante", "Bariloche", 1, 9)
	res := tr.Report("restaurante", "Bariloche", 0, 10)
	assert.Equal(t, ClassSaturated, res.Classification)
	assert.Equal(t, DefaultTable().Fallback, res.SuggestedAreas)
}

func TestStateAndSnapshot(t *testing.T) {
	tr := NewTracker(DefaultTable()).WithNow(fixedClock())

	tr.Report("restaurante", "Palermo, Buenos Aires", 10, 0)

	st, ok := tr.State("Restaurante", "palermo, buenos aires")
	assert.True(t, ok)
	assert.Equal(t, 1, st.Searches)
	assert.Equal(t, 10, st.TotalNew)

	_, ok = tr.State("otro", "Palermo, Buenos Aires")
	assert.False(t, ok)

	assert.Len(t, tr.Snapshot(), 1)
}

func TestPrune(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	now := base
	tr := NewTracker(DefaultTable()).WithNow(func() time.Time { return now })

	tr.Report("restaurante", "Palermo, Buenos Aires", 10, 0)

	now = base.Add(48 * time.Hour)
	tr.Report("restaurante", "Recoleta, Buenos Aires", 10, 0)

	removed := tr.Prune(24 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.Len(t, tr.Snapshot(), 1)
}
