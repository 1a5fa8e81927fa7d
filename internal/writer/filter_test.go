package writer

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
)

func TestFilterFastPathSkipsModelCall(t *testing.T) {
	gw := &mockGateway{}
	f := NewContextFilter(gw, config.WriterConfig{FilterFastPathLimit: 5})

	facts := []string{"fact one", "fact two", "fact three"}
	terms := []string{"term a", "term b"}
	res := f.Filter(context.Background(), "Benefits", facts, terms, "", "")

	assert.Equal(t, 0, gw.callCount())
	assert.Equal(t, facts, res.Facts)
	assert.Equal(t, terms, res.Terms)
	assert.Empty(t, res.Insights)
	assert.Zero(t, res.Usage)
}

func TestFilterSlowPathWhenOverLimit(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return `{"facts": ["fact one"], "terms": [], "insights": []}`, nil
		},
		usage: model.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
	f := NewContextFilter(gw, config.WriterConfig{FilterFastPathLimit: 2})

	facts := []string{"fact one", "fact two", "fact three"}
	res := f.Filter(context.Background(), "Benefits", facts, nil, "", "")

	assert.Equal(t, 1, gw.callCount())
	assert.Equal(t, []string{"fact one"}, res.Facts)
	assert.Equal(t, 100, res.Usage.InputTokens)
}

func TestFilterSlowPathWithKnowledgeBase(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return `{"facts": [], "terms": [], "insights": ["lead with outcomes"]}`, nil
		},
	}
	f := NewContextFilter(gw, config.WriterConfig{})

	// One fact and no terms would take the fast path, except the knowledge
	// base forces a model call.
	res := f.Filter(context.Background(), "Benefits", []string{"fact one"}, nil, "Our brand voice is direct.", "engineers")

	assert.Equal(t, 1, gw.callCount())
	assert.Equal(t, []string{"lead with outcomes"}, res.Insights)
	assert.Contains(t, gw.prompts[0], "Our brand voice is direct.")
	assert.Contains(t, gw.prompts[0], "engineers")
}

func TestFilterTruncatesKnowledgeBase(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return `{"facts": [], "terms": [], "insights": []}`, nil
		},
	}
	f := NewContextFilter(gw, config.WriterConfig{KnowledgeCharBudget: 50})

	f.Filter(context.Background(), "Benefits", nil, nil, strings.Repeat("k", 500), "")

	assert.Equal(t, 1, gw.callCount())
	assert.NotContains(t, gw.prompts[0], strings.Repeat("k", 51))
	assert.Contains(t, gw.prompts[0], strings.Repeat("k", 50))
}

func TestFilterFailsOpen(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return "", eris.New("backend down")
		},
	}
	f := NewContextFilter(gw, config.WriterConfig{FilterFastPathLimit: 1})

	facts := []string{"fact one", "fact two"}
	terms := []string{"term a", "term b"}
	res := f.Filter(context.Background(), "Benefits", facts, terms, "", "")

	assert.Equal(t, 1, gw.callCount())
	assert.Equal(t, facts, res.Facts)
	assert.Equal(t, terms, res.Terms)
	assert.Zero(t, res.Usage)
}
