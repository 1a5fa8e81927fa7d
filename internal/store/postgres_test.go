package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO runs (id, title, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`).
		WithArgs(pgxmock.AnyArg(), "Article", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "Article")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`).
		WithArgs("writing", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateRunStatus(context.Background(), "run-1", model.RunStatusWriting))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatusNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresGetRun(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	doc := "## Intro\n\nBody.\n"
	resultJSON := []byte(`{"section_count": 2, "total_tokens": 500, "total_cost": 0.1}`)

	mock.ExpectQuery(`SELECT id, title, status, document, result, created_at, updated_at FROM runs WHERE id = $1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "title", "status", "document", "result", "created_at", "updated_at"},
		).AddRow("run-1", "Article", "complete", &doc, resultJSON, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Article", run.Title)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, doc, run.Document)
	require.NotNil(t, run.Result)
	assert.Equal(t, 2, run.Result.SectionCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRunsWithStatusFilter(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, title, status, document, result, created_at, updated_at FROM runs WHERE true AND status = $1 ORDER BY created_at DESC LIMIT $2`).
		WithArgs("complete", 100).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "title", "status", "document", "result", "created_at", "updated_at"},
		).AddRow("run-1", "Article", "complete", (*string)(nil), []byte(nil), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Empty(t, runs[0].Document)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPhaseLifecycle(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`).
		WithArgs(pgxmock.AnyArg(), "run-1", "analyze", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	phase, err := s.CreatePhase(context.Background(), "run-1", "analyze")
	require.NoError(t, err)
	assert.Equal(t, "analyze", phase.Name)

	mock.ExpectExec(`UPDATE run_phases SET status = $1, result = $2 WHERE id = $3`).
		WithArgs("complete", pgxmock.AnyArg(), phase.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = s.CompletePhase(context.Background(), phase.ID, &model.PhaseResult{
		Name:   "analyze",
		Status: model.PhaseStatusComplete,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
