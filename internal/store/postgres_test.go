package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/model"
)

// anyArgs returns n pgxmock.AnyArg() placeholders so an expectation can
// declare its argument count without asserting values.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_GetLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE place_id = \$1`).
		WithArgs("missing-place").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetLead(context.Background(), "missing-place")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads .+ ON CONFLICT \(place_id\) DO UPDATE SET`).
		WithArgs(anyArgs(20)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertLead(context.Background(), model.LeadRecord{
		PlaceID:   "place-1",
		Name:      "Café Martínez",
		LeadScore: 60,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPlaceIDs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"place_id"}).
		AddRow("p1").
		AddRow("p2")
	mock.ExpectQuery(`SELECT place_id FROM leads`).WillReturnRows(rows)

	ids, err := s.ListPlaceIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "p1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO search_sessions`).
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordSession(context.Background(), model.SessionSummary{
		Term:      "restaurante",
		Area:      "Palermo, Buenos Aires",
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSessions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "term", "area", "sub_areas", "found", "new_leads",
		"duplicates", "classification", "started_at", "finished_at",
	}).AddRow("s1", "restaurante", "Buenos Aires", 16, 120, 85, 35, "warm", started, started.Add(4*time.Minute))
	mock.ExpectQuery(`SELECT .+ FROM search_sessions ORDER BY started_at DESC`).
		WithArgs(anyArgs(1)...).
		WillReturnRows(rows)

	sessions, err := s.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "warm", sessions[0].Classification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLeads_Empty(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	n, err := s.UpsertLeads(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPostgresStore_ImportLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"leads"}, bulkLeadColumns).
		WillReturnResult(2)

	n, err := s.ImportLeads(context.Background(), []model.LeadRecord{
		{PlaceID: "p1", Name: "La Parrilla de Palermo", Status: "new"},
		{PlaceID: "p2", Name: "Bodegón El Trébol", Status: "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
