package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/session"
)

const regionalPrompt = `You are a localization editor for the "%s" audience. Scan the reference document for terminology that should be corrected for this region (spelling, product naming, units, idiom).

Reference document:
%s

Return a valid JSON array (empty if nothing needs correcting):
[{"from": "<term as written>", "to": "<regional correction>", "reason": "<short reason>"}, ...]`

// runRegional detects region-specific terminology corrections. It returns an
// empty list on failure or when nothing is found; regional grounding is
// advisory and never blocks the pipeline.
func (p *Pipeline) runRegional(ctx context.Context, tok *session.Token, sess *session.Session, cfg *model.GenerationConfig) ([]model.RegionalReplacement, error) {
	if tok.Stopped() {
		return nil, nil
	}
	audience := cfg.Audience
	if audience == "" {
		audience = "general"
	}

	var replacements []model.RegionalReplacement
	meta, err := p.gw.RunJSON(ctx,
		fmt.Sprintf(regionalPrompt, audience, cfg.ReferenceText),
		gateway.TierFast, &replacements,
	)
	sess.AddUsage(meta.Usage)
	if err != nil {
		zap.L().Warn("analysis: regional terminology scan failed", zap.Error(err))
		return nil, nil
	}

	if len(replacements) > 0 {
		p.sink.Log(fmt.Sprintf("Found %d regional terminology corrections.", len(replacements)))
	}
	return replacements, nil
}
