package writer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
)

const filterPrompt = `You are preparing context for the article section titled: %s

Candidate facts:
%s

Candidate authority terms:
%s
%s
Select only the facts and terms relevant to this section. Do not rewrite them; return them verbatim.%s

Return a valid JSON object:
{"facts": ["<relevant fact>", ...], "terms": ["<relevant term>", ...], "insights": ["<directive>", ...]}`

// FilterResult is the narrowed context for one section.
type FilterResult struct {
	Facts    []string
	Terms    []string
	Insights []string
	Usage    model.TokenUsage
}

// ContextFilter narrows a superset of candidate facts and terms to the ones
// relevant to a single section, optionally extracting directives from brand
// knowledge text.
type ContextFilter struct {
	gw  gateway.Gateway
	cfg config.WriterConfig
}

// NewContextFilter creates a ContextFilter, applying defaults for zero
// config values.
func NewContextFilter(gw gateway.Gateway, cfg config.WriterConfig) *ContextFilter {
	if cfg.FilterFastPathLimit <= 0 {
		cfg.FilterFastPathLimit = 5
	}
	if cfg.KnowledgeCharBudget <= 0 {
		cfg.KnowledgeCharBudget = 30000
	}
	return &ContextFilter{gw: gw, cfg: cfg}
}

// Filter narrows facts and terms for a section. When no knowledge base is
// attached and both candidate lists are already at or under the fast-path
// limit, the inputs pass through unchanged with zero cost. The slow path is
// one model call; on any failure the filter fails open, returning the
// original inputs so section generation is never blocked.
func (f *ContextFilter) Filter(ctx context.Context, sectionTitle string, facts, terms []string, knowledgeBase, audience string) FilterResult {
	passthrough := FilterResult{Facts: facts, Terms: terms}

	if knowledgeBase == "" && len(facts) <= f.cfg.FilterFastPathLimit && len(terms) <= f.cfg.FilterFastPathLimit {
		return passthrough
	}

	var kbBlock, kbInstruction string
	if knowledgeBase != "" {
		kb := knowledgeBase
		if len(kb) > f.cfg.KnowledgeCharBudget {
			kb = kb[:f.cfg.KnowledgeCharBudget]
		}
		kbBlock = "\nBrand knowledge base:\n" + kb + "\n"
		kbInstruction = " Also extract 3-5 section-specific writing directives from the knowledge base."
	}

	audienceNote := ""
	if audience != "" {
		audienceNote = "\nTarget audience: " + audience
	}

	var out struct {
		Facts    []string `json:"facts"`
		Terms    []string `json:"terms"`
		Insights []string `json:"insights"`
	}
	meta, err := f.gw.RunJSON(ctx, fmt.Sprintf(filterPrompt,
		sectionTitle,
		bulletList(facts),
		bulletList(terms),
		kbBlock+audienceNote,
		kbInstruction,
	), gateway.TierFast, &out)
	if err != nil {
		zap.L().Warn("writer: context filter failed, using unfiltered inputs",
			zap.String("section", sectionTitle),
			zap.Error(err),
		)
		return passthrough
	}

	return FilterResult{
		Facts:    out.Facts,
		Terms:    out.Terms,
		Insights: out.Insights,
		Usage:    meta.Usage,
	}
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
