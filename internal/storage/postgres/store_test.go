package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/job"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, "jobs", "pipeline_runs")
	require.NoError(t, err)
	return mock, store
}

func TestNewWithPoolRejectsBadTableNames(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "jobs; DROP TABLE jobs", "pipeline_runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestSavePostingsSkipsURLConflicts(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	postings := []job.Posting{
		{Title: "Backend Engineer", Company: "Acme", URL: "https://a.example/1", Source: "Indeed RSS", Score: 72.5, CollectedAt: now.Format(time.RFC3339)},
		{Title: "Backend Engineer", Company: "Acme", URL: "https://a.example/1", Source: "Adzuna API", Score: 68, CollectedAt: now.Format(time.RFC3339)},
	}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("Backend Engineer", "Acme", "", "", "", "https://a.example/1", "Indeed RSS", 72.5, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// Second row hits the url unique constraint and is ignored.
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("Backend Engineer", "Acme", "", "", "", "https://a.example/1", "Adzuna API", 68.0, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.SavePostings(context.Background(), postings)

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunUpserts(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(42 * time.Second)

	run := job.Run{
		ID:            "run-1",
		StartedAt:     started,
		FinishedAt:    &finished,
		TotalRecords:  31,
		UniqueRecords: 24,
		Status:        job.RunStatusCompleted,
		Profile:       job.Profile{Keywords: []string{"go"}},
	}

	mock.ExpectExec("INSERT INTO pipeline_runs").
		WithArgs("run-1", started, &finished, 31, 24, "completed", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostingsFiltersAndOrders(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	collected := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"title", "company", "location", "salary", "description", "url", "source", "score", "collected_at",
	}).
		AddRow("Top Role", "Acme", "Geneva", "", "", "https://a.example/1", "Indeed RSS", 91.0, collected).
		AddRow("Next Role", "Globex", "Paris", "", "", "https://a.example/2", "Adzuna API", 64.0, collected)

	mock.ExpectQuery("SELECT title, company, location").
		WithArgs(60.0, 10, 0).
		WillReturnRows(rows)

	postings, err := store.ListPostings(context.Background(), 60.0, 10, 0)

	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "Top Role", postings[0].Title)
	assert.Equal(t, collected.Format(time.RFC3339), postings[0].CollectedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT id, started_at").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "started_at", "finished_at", "total_records", "unique_records", "status", "error", "profile",
		}))

	_, err := store.GetRun(context.Background(), "missing")

	require.ErrorIs(t, err, ErrRunNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunUnmarshalsProfile(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	started := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"id", "started_at", "finished_at", "total_records", "unique_records", "status", "error", "profile",
	}).AddRow("run-1", started, (*time.Time)(nil), 10, 8, "completed", "", []byte(`{"keywords":["go"]}`))

	mock.ExpectQuery("SELECT id, started_at").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := store.GetRun(context.Background(), "run-1")

	require.NoError(t, err)
	assert.Equal(t, job.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"go"}, run.Profile.Keywords)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunWritesTerminalState(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	finished := time.Unix(1700000500, 0).UTC()
	note := "interrupted"

	mock.ExpectExec("UPDATE pipeline_runs").
		WithArgs("run-1", finished, "failed", "interrupted").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.CompleteRun(context.Background(), "run-1", finished, job.RunStatusFailed, &note))
	require.NoError(t, mock.ExpectationsWereMet())
}
