package gateway

import (
	"strings"

	"github.com/sells-group/article-cli/internal/model"
)

// CleanJSON strips markdown code fences and any text surrounding the
// outermost JSON object or array, returning the bare JSON payload.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	objStart := strings.IndexAny(text, "{[")
	if objStart < 0 {
		return text
	}
	var objEnd int
	if text[objStart] == '{' {
		objEnd = strings.LastIndex(text, "}")
	} else {
		objEnd = strings.LastIndex(text, "]")
	}
	if objEnd <= objStart {
		return text
	}
	return text[objStart : objEnd+1]
}

// usedPointsAliases lists the field names historically emitted by models for
// the used-facts list, in lookup order.
var usedPointsAliases = []string{"usedPoints", "used_points", "pointsUsed", "usedFacts"}

// DecodeSectionResult converts a raw section-generation response into the
// canonical SectionResult. This is the one place alias handling lives:
// whichever usedPoints spelling the model chose, every element is coerced to
// a trimmed string and empties are dropped.
func DecodeSectionResult(raw map[string]any) model.SectionResult {
	var res model.SectionResult

	if content, ok := raw["content"].(string); ok {
		res.Content = content
	}

	for _, alias := range usedPointsAliases {
		if _, ok := raw[alias].([]any); !ok {
			continue
		}
		res.UsedPoints = StringSlice(raw[alias])
		break
	}

	switch n := raw["injectedCount"].(type) {
	case float64:
		res.InjectedCount = int(n)
	}

	return res
}

// StringSlice coerces a raw JSON array value into trimmed non-empty strings.
func StringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
