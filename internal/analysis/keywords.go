package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/session"
)

const keywordPlanPrompt = `You are an SEO content planner for an article titled: %s

These keywords were extracted from the reference document, ordered by frequency:
%s

For each keyword worth keeping, write 1-3 short usage directives for the writer (placement, density, semantic variants). Keep the original order.

Return a valid JSON array:
[{"word": "<keyword>", "plan": ["<directive>", ...]}, ...]`

// ComputeKeywordCap returns the dynamic keyword limit for a reference text of
// the given length: length/divisor clamped to [min, max]. Monotonic
// non-decreasing in length.
func ComputeKeywordCap(length, divisor, min, max int) int {
	if divisor <= 0 {
		divisor = 1
	}
	limit := length / divisor
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// runKeywords performs a local (non-LLM) frequency scan of the reference
// text, caps the result, and asks the model to turn the surviving keywords
// into an ordered action plan. Keyword planning is advisory: an LLM failure
// logs and returns no plan rather than degrading the document.
func (p *Pipeline) runKeywords(ctx context.Context, tok *session.Token, sess *session.Session, cfg *model.GenerationConfig) ([]model.KeywordActionPlan, error) {
	scanned := ScanKeywords(cfg.ReferenceText)
	limit := ComputeKeywordCap(len(cfg.ReferenceText), p.keywords.CharDivisor, p.keywords.Min, p.keywords.Max)
	if len(scanned) > limit {
		scanned = scanned[:limit]
	}
	if len(scanned) == 0 {
		return nil, nil
	}
	p.sink.Log(fmt.Sprintf("Scanned %d candidate keywords.", len(scanned)))

	if tok.Stopped() {
		return nil, nil
	}

	var plans []model.KeywordActionPlan
	meta, err := p.gw.RunJSON(ctx,
		fmt.Sprintf(keywordPlanPrompt, cfg.Title, strings.Join(scanned, ", ")),
		gateway.TierFast, &plans,
	)
	sess.AddUsage(meta.Usage)
	if err != nil {
		zap.L().Warn("analysis: keyword planning failed, continuing without plans", zap.Error(err))
		return nil, nil
	}

	p.sink.Log(fmt.Sprintf("Keyword action plan ready: %d entries.", len(plans)))
	return plans, nil
}

var keywordStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"were": true, "been": true, "have": true, "has": true, "had": true,
	"this": true, "that": true, "with": true, "from": true, "what": true,
	"how": true, "does": true, "which": true, "where": true, "when": true,
	"who": true, "why": true, "can": true, "will": true, "not": true,
	"you": true, "your": true, "they": true, "their": true, "its": true,
	"more": true, "most": true, "than": true, "also": true, "into": true,
	"about": true, "other": true, "some": true, "such": true, "these": true,
}

// ScanKeywords extracts candidate keywords from text by frequency: lowercased
// words of 4+ characters, stop words excluded, ordered by descending count
// with first-occurrence order breaking ties.
func ScanKeywords(text string) []string {
	lower := cases.Lower(language.Und)

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, w := range strings.Fields(lower.String(text)) {
		w = strings.Trim(w, "?.,!;:'\"()[]{}*#-")
		if len(w) < 4 || keywordStopWords[w] {
			continue
		}
		counts[w]++
		if _, ok := firstSeen[w]; !ok {
			firstSeen[w] = i
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})
	return words
}
