package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/session"
)

const parseBriefPrompt = `You are a product marketing analyst. Parse the product description below into a structured brief.

Product description:
%s

Return a valid JSON object:
{"product_name": "<full product name>", "brand_name": "<brand>", "link": "<product URL or empty>", "features": ["<feature>", ...], "usps": ["<unique selling point>", ...]}`

const painPointPrompt = `You are a content strategist. The article topic is: %s

Product brief:
Name: %s
Features: %s
USPs: %s

Identify 3-5 reader pain points this article's audience has that the product addresses. Score each 0.0-1.0 by relevance to the article topic.

Return a valid JSON array:
[{"pain_point": "<pain point>", "feature": "<addressing feature>", "score": <0.0-1.0>}, ...]`

// runProduct parses a product brief from raw product text (unless one was
// supplied pre-parsed) and generates pain-point→feature mappings scored
// against the article topic. Each sub-call is individually skippable if
// cancellation fires between them.
func (p *Pipeline) runProduct(ctx context.Context, tok *session.Token, sess *session.Session, cfg *model.GenerationConfig) (*model.ProductResult, error) {
	res := &model.ProductResult{Brief: cfg.ProductBrief}

	if res.Brief == nil && cfg.ProductText != "" {
		if tok.Stopped() {
			return res, nil
		}
		var brief model.ProductBrief
		meta, err := p.gw.RunJSON(ctx, fmt.Sprintf(parseBriefPrompt, cfg.ProductText), gateway.TierFast, &brief)
		sess.AddUsage(meta.Usage)
		if err != nil {
			return res, eris.Wrap(err, "analysis: parse product brief")
		}
		res.Brief = &brief
		p.sink.Log("Product brief parsed: " + brief.ProductName)
	}

	if res.Brief == nil || res.Brief.ProductName == "" {
		return res, nil
	}

	if tok.Stopped() {
		return res, nil
	}

	var mappings []model.PainPointMapping
	meta, err := p.gw.RunJSON(ctx, fmt.Sprintf(painPointPrompt,
		cfg.Title,
		res.Brief.ProductName,
		joinList(res.Brief.Features),
		joinList(res.Brief.USPs),
	), gateway.TierBalanced, &mappings)
	sess.AddUsage(meta.Usage)
	if err != nil {
		return res, eris.Wrap(err, "analysis: pain point mappings")
	}
	res.Mappings = mappings
	p.sink.Log(fmt.Sprintf("Mapped %d pain points to product features.", len(mappings)))

	return res, nil
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, "; ")
}
