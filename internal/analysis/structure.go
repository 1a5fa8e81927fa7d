package analysis

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/session"
)

const structurePrompt = `You are an editorial analyst. Extract the section structure of the reference document below for a new article titled: %s

For each logical section, plan how a new article should cover it. Difficulty is "easy", "medium", or "unclear"; writing_mode is "direct" for settled topics or "multi_solutions" when several approaches deserve coverage.

Reference document:
%s

Return a valid JSON object:
{"intro_paragraph": "<extracted intro paragraph or empty>",
 "sections": [{"title": "<section title>", "narrative_plan": ["<beat>", ...], "core_question": "<question the section answers>", "difficulty": "easy|medium|unclear", "writing_mode": "direct|multi_solutions", "key_facts": ["<fact>", ...], "usp_notes": ["<note>", ...], "subheadings": [{"title": "<subheading>", "key_facts": ["<fact>", ...]}]}],
 "heading_optimizations": [{"before": "<original heading>", "after": "<improved heading>", "score": <0.0-1.0>}]}`

const authorityPrompt = `You are a competitive intelligence analyst. Analyze the reference document below for authority signals relevant to an article titled: %s

Reference document:
%s

Return a valid JSON object:
{"terms": ["<authority/expertise term worth reusing>", ...],
 "competitor_brands": ["<brand name>", ...],
 "competitor_products": ["<product name>", ...],
 "generic_terms": ["<generic replacement for a competitor mention>", ...],
 "summary": "<one paragraph on the document's authority posture>"}`

// runStructure issues the structure-extraction and authority-analysis calls
// concurrently and joins them into one StructureResult. Costs accumulate
// independently per call.
func (p *Pipeline) runStructure(ctx context.Context, tok *session.Token, sess *session.Session, cfg *model.GenerationConfig) (*model.StructureResult, error) {
	if tok.Stopped() {
		return nil, nil
	}
	p.sink.Log("Extracting reference structure...")

	var structure struct {
		IntroParagraph       string                      `json:"intro_paragraph"`
		Sections             []model.SectionPlan         `json:"sections"`
		HeadingOptimizations []model.HeadingOptimization `json:"heading_optimizations"`
	}
	var authority model.AuthorityAnalysis
	var structureErr, authorityErr error

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta, err := p.gw.RunJSON(gCtx,
			fmt.Sprintf(structurePrompt, cfg.Title, cfg.ReferenceText),
			gateway.TierBalanced, &structure,
			gateway.WithMaxTokens(8192),
		)
		sess.AddUsage(meta.Usage)
		structureErr = err
		return nil
	})
	g.Go(func() error {
		meta, err := p.gw.RunJSON(gCtx,
			fmt.Sprintf(authorityPrompt, cfg.Title, cfg.ReferenceText),
			gateway.TierBalanced, &authority,
		)
		sess.AddUsage(meta.Usage)
		authorityErr = err
		return nil
	})
	_ = g.Wait()

	if structureErr != nil {
		return nil, eris.Wrap(structureErr, "analysis: structure extraction")
	}

	res := &model.StructureResult{
		Sections:             structure.Sections,
		IntroParagraph:       structure.IntroParagraph,
		HeadingOptimizations: structure.HeadingOptimizations,
	}
	if authorityErr != nil {
		// Authority is an enrichment; structure alone is still usable.
		p.sink.Log("Authority analysis unavailable; continuing without it.")
	} else {
		res.Authority = &authority
	}

	p.sink.Log(fmt.Sprintf("Structure extracted: %d sections.", len(res.Sections)))
	return res, nil
}
