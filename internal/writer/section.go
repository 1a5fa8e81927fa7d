package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/pkg/anthropic"
)

const sectionSystemPrompt = `You are a senior long-form content writer. You write one section of a larger article at a time, in clean markdown, grounded strictly in the facts you are given. You never invent statistics and you never repeat material that belongs to other sections.`

const sectionPrompt = `You are writing one section of an article titled: %s

Section: %s
%s
Write the section body in markdown. Do not repeat the section heading; the caller renders it. Use heading level 3 or deeper for any subheadings.

Return a valid JSON object:
{"content": "<markdown body>", "usedPoints": ["<fact you actually incorporated, verbatim from the supplied facts>", ...], "injectedCount": <number of product mentions>}`

// SectionInput carries everything one section generation needs. Previous and
// Future hold the other sections' titles for negative constraints.
type SectionInput struct {
	Config    *model.GenerationConfig
	Title     string
	Plan      *model.SectionPlan
	Keywords  []model.KeywordActionPlan
	Previous  []string
	Future    []string
	Authority *model.AuthorityAnalysis
	Product   *model.ProductResult
	KeyFacts  []string
	Suppress  []string

	VisualStyle string
	Regional    []model.RegionalReplacement

	InjectedCountSoFar int
	IsLastSections     bool
}

// SectionGenerator produces the body of a single section.
type SectionGenerator struct {
	gw     gateway.Gateway
	filter *ContextFilter
	cfg    config.WriterConfig
}

// NewSectionGenerator creates a SectionGenerator, applying defaults for zero
// config values.
func NewSectionGenerator(gw gateway.Gateway, cfg config.WriterConfig) *SectionGenerator {
	if cfg.SemanticKeywordLimit <= 0 {
		cfg.SemanticKeywordLimit = 15
	}
	return &SectionGenerator{gw: gw, filter: NewContextFilter(gw, cfg), cfg: cfg}
}

// Generate builds the prompt for one section, issues a single model call,
// and normalizes the result. Errors propagate to the caller, which renders
// an empty body for the failed slot instead of aborting the document.
func (s *SectionGenerator) Generate(ctx context.Context, in SectionInput) (model.SectionResult, gateway.CallMeta, error) {
	keywords := in.Keywords
	if len(keywords) > s.cfg.SemanticKeywordLimit {
		keywords = keywords[:s.cfg.SemanticKeywordLimit]
	}

	facts := in.KeyFacts
	var terms []string
	if in.Authority != nil {
		terms = in.Authority.Terms
	}
	// The knowledge base only reaches the filter when retrieval is enabled.
	knowledge := ""
	if in.Config.UseRAG {
		knowledge = in.Config.KnowledgeBase
	}
	filtered := s.filter.Filter(ctx, in.Title, facts, terms, knowledge, in.Config.Audience)

	var planFacts, uspNotes []string
	if in.Plan != nil {
		planFacts = in.Plan.KeyFacts
		uspNotes = in.Plan.USPNotes
	}
	chosen := stableUnion(filtered.Facts, planFacts, uspNotes)
	rejected := difference(facts, chosen)

	injection := BuildInjectionPlan(in.Product, in.Authority, in.Title, in.InjectedCountSoFar, in.IsLastSections)
	negative := stableUnion(in.Future, in.Previous, rejected, in.Suppress)

	prompt := fmt.Sprintf(sectionPrompt, in.Config.Title, in.Title,
		s.buildBriefing(in, keywords, chosen, filtered, injection, negative))

	// All section calls share one cached system block; every parallel call
	// after the first hits the warm cache.
	var raw map[string]any
	meta, err := s.gw.RunJSON(ctx, prompt, gateway.TierBalanced, &raw,
		gateway.WithMaxTokens(8192),
		gateway.WithSystem(anthropic.BuildCachedSystemBlocks(sectionSystemPrompt)),
	)
	meta.Usage.Add(filtered.Usage)
	if err != nil {
		return model.SectionResult{}, meta, eris.Wrap(err, "writer: generate section")
	}

	res := gateway.DecodeSectionResult(raw)
	res.Content = DemoteHeadings(res.Content)
	return res, meta, nil
}

// buildBriefing assembles the optional prompt blocks. Each block is omitted
// entirely when it has nothing to say, keeping short sections cheap.
func (s *SectionGenerator) buildBriefing(in SectionInput, keywords []model.KeywordActionPlan, chosen []string, filtered FilterResult, injection string, negative []string) string {
	var b strings.Builder

	if in.Plan != nil {
		if in.Plan.CoreQuestion != "" {
			b.WriteString("Core question this section answers: " + in.Plan.CoreQuestion + "\n")
		}
		if in.Plan.WritingMode == "multi_solutions" {
			b.WriteString("Several approaches deserve coverage; present alternatives rather than one answer.\n")
		}
		if len(in.Plan.NarrativePlan) > 0 {
			b.WriteString("Narrative plan:\n" + bulletList(in.Plan.NarrativePlan) + "\n")
		}
		if len(in.Plan.Subheadings) > 0 {
			b.WriteString("Planned subheadings:\n")
			for _, sub := range in.Plan.Subheadings {
				b.WriteString("- " + sub.Title + "\n")
			}
		}
	}

	if len(chosen) > 0 {
		b.WriteString("Facts to incorporate (report each one you use in usedPoints):\n" + bulletList(chosen) + "\n")
	}
	if len(filtered.Terms) > 0 {
		b.WriteString("Authority terms to weave in naturally: " + strings.Join(filtered.Terms, ", ") + "\n")
	}
	if len(filtered.Insights) > 0 {
		b.WriteString("Brand directives:\n" + bulletList(filtered.Insights) + "\n")
	}

	if len(keywords) > 0 {
		b.WriteString("Keyword guidance:\n")
		for _, kw := range keywords {
			b.WriteString("- " + kw.Word)
			if len(kw.Plan) > 0 {
				b.WriteString(": " + strings.Join(kw.Plan, "; "))
			}
			b.WriteString("\n")
		}
	}

	if len(in.Regional) > 0 {
		b.WriteString("Regional terminology corrections:\n")
		for _, r := range in.Regional {
			b.WriteString(fmt.Sprintf("- write %q, not %q\n", r.To, r.From))
		}
	}
	if in.VisualStyle != "" {
		b.WriteString("Visual style of the source material (for tone): " + in.VisualStyle + "\n")
	}

	if injection != "" {
		b.WriteString("\n" + injection)
	}

	if len(negative) > 0 {
		b.WriteString("\nDo NOT cover these topics or facts; they belong to other sections or were excluded:\n" + bulletList(negative) + "\n")
	}

	return b.String()
}

// difference returns the items of list absent from keep, preserving order.
func difference(list, keep []string) []string {
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}
	var out []string
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := kept[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}
