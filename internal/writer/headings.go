package writer

import (
	"regexp"
	"strings"
)

// NormalizeHeading strips markdown heading markers and surrounding quote
// characters from a heading. Used both before comparison and before
// rendering so the two always agree.
func NormalizeHeading(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")
	return strings.TrimSpace(s)
}

var (
	mdHeadingPattern   = regexp.MustCompile(`(?m)^#{1,2}\s+`)
	htmlHeadingPattern = regexp.MustCompile(`(?is)<h[12][^>]*>\s*(.*?)\s*</h[12]>`)
)

// DemoteHeadings rewrites every h1/h2 heading in content, markdown or HTML
// form, to markdown level 3. The section title is rendered by the caller as
// the document heading; a model that re-emits it at h1/h2 would duplicate it.
func DemoteHeadings(content string) string {
	content = mdHeadingPattern.ReplaceAllString(content, "### ")
	content = htmlHeadingPattern.ReplaceAllString(content, "### $1")
	return content
}

// stableUnion merges string lists into one de-duplicated list that preserves
// first-occurrence order across all inputs.
func stableUnion(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, item := range list {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
