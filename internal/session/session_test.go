package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-cli/internal/model"
)

func TestAddCoveredPointsIdempotent(t *testing.T) {
	s := New()

	// Two sections report overlapping facts; each fact is covered once, in
	// first-report order.
	s.AddCoveredPoints([]string{"fact a", "fact b"})
	s.AddCoveredPoints([]string{"fact b", "fact c", ""})

	assert.Equal(t, []string{"fact a", "fact b", "fact c"}, s.CoveredPoints())
	assert.True(t, s.IsCovered("fact b"))
	assert.False(t, s.IsCovered("fact d"))
}

func TestAddCoveredPointsConcurrent(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddCoveredPoints([]string{"shared", "also shared"})
		}()
	}
	wg.Wait()

	assert.Len(t, s.CoveredPoints(), 2)
}

func TestResetRearmsCancellation(t *testing.T) {
	s := New()
	old := s.CancelToken()
	old.Cancel()
	require.True(t, old.Stopped())

	s.SetDocument("doc")
	s.SetError("boom")
	s.AddCoveredPoints([]string{"fact"})
	s.AddUsage(model.TokenUsage{InputTokens: 10})

	s.Reset()

	assert.True(t, old.Stopped(), "the old token stays cancelled")
	assert.False(t, s.CancelToken().Stopped(), "the new token is fresh")
	assert.Equal(t, model.StatusIdle, s.Status())
	assert.Empty(t, s.Document())
	assert.Empty(t, s.Error())
	assert.Empty(t, s.CoveredPoints())
	assert.Zero(t, s.Usage().InputTokens)
}

func TestSetErrorMovesToErrorState(t *testing.T) {
	s := New()
	s.SetStatus(model.StatusStreaming)
	s.SetError("analysis failed")

	assert.Equal(t, model.StatusError, s.Status())
	assert.Equal(t, "analysis failed", s.Error())
}

func TestAddUsageAccumulates(t *testing.T) {
	s := New()
	s.AddUsage(model.TokenUsage{InputTokens: 100, OutputTokens: 10, Cost: 0.5})
	s.AddUsage(model.TokenUsage{InputTokens: 50, CacheReadTokens: 5, Cost: 0.25})

	u := s.Usage()
	assert.Equal(t, 150, u.InputTokens)
	assert.Equal(t, 10, u.OutputTokens)
	assert.Equal(t, 5, u.CacheReadTokens)
	assert.InDelta(t, 0.75, u.Cost, 0.0001)
	assert.Equal(t, 160, u.Total())
	assert.Equal(t, 2, s.LLMCalls())
}

func TestTokenCancelIdempotent(t *testing.T) {
	tok := &Token{}
	assert.False(t, tok.Stopped())
	tok.Cancel()
	tok.Cancel()
	assert.True(t, tok.Stopped())
}
