package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "Turbine Maintenance")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusWriting))
	require.NoError(t, s.UpdateRunDocument(ctx, run.ID, "## Introduction\n\nBody.\n"))

	result := &model.RunResult{
		SectionCount: 3,
		TotalTokens:  1200,
		TotalCost:    0.42,
	}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Turbine Maintenance", got.Title)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "## Introduction\n\nBody.\n", got.Document)
	require.NotNil(t, got.Result)
	assert.Equal(t, 3, got.Result.SectionCount)
	assert.InDelta(t, 0.42, got.Result.TotalCost, 0.0001)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteUpdateMissingRun(t *testing.T) {
	s := newTestSQLite(t)

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListRunsFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, "Article A")
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "Article B")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, a.ID, model.RunStatusComplete))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a.ID, complete[0].ID)

	byTitle, err := s.ListRuns(ctx, RunFilter{Title: "Article B"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Article B", byTitle[0].Title)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLitePhaseLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "Article")
	require.NoError(t, err)

	phase, err := s.CreatePhase(ctx, run.ID, "analyze")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusRunning, phase.Status)

	err = s.CompletePhase(ctx, phase.ID, &model.PhaseResult{
		Name:     "analyze",
		Status:   model.PhaseStatusComplete,
		Duration: 1500,
	})
	require.NoError(t, err)

	err = s.CompletePhase(ctx, "missing", &model.PhaseResult{Status: model.PhaseStatusComplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
