package writer

import (
	"fmt"
	"strings"

	"github.com/sells-group/article-cli/internal/model"
)

// commercialTitleHints mark section titles that read like solution, benefit,
// or guide sections; these accept generic pain-point mappings when no direct
// match exists.
var commercialTitleHints = []string{
	"solution", "benefit", "guide", "how to", "choose", "best", "recommend",
}

// BuildInjectionPlan produces the instructional text steering how the brand
// is mentioned in one section. Returns the empty string when no product
// brief is available.
//
// Force injection fires on the final sections when the brand has been
// under-used so far (injected at most twice), guaranteeing at least one
// mention before the document ends.
func BuildInjectionPlan(product *model.ProductResult, authority *model.AuthorityAnalysis, sectionTitle string, injectedCountSoFar int, isLastSections bool) string {
	if product == nil || product.Brief == nil || product.Brief.ProductName == "" {
		return ""
	}
	brief := product.Brief
	forceInjection := isLastSections && injectedCountSoFar <= 2

	var sanitize []string
	if authority != nil {
		sanitize = stableUnion(authority.CompetitorBrands, authority.CompetitorProducts, authority.GenericTerms)
	}

	matched := matchPainPoints(sectionTitle, product.Mappings)
	if len(matched) == 0 && (forceInjection || looksCommercial(sectionTitle)) {
		matched = product.Mappings
		if len(matched) > 2 {
			matched = matched[:2]
		}
	}

	var b strings.Builder
	b.WriteString("COMMERCIAL INJECTION PLAN\n")
	b.WriteString(fmt.Sprintf("Product: %s (brand: %s)\n", brief.ProductName, brief.BrandName))

	if len(sanitize) > 0 {
		b.WriteString("Competitor names are banned. Never mention: " + strings.Join(sanitize, ", ") + ".\n")
		b.WriteString("When the source text uses a competitor as the grammatical subject, rewrite the sentence around " + brief.ProductName + " as the subject. Do not do a literal find-and-replace.\n")
	}

	b.WriteString("Density cap: use the full product name at most once in this section. Any further mention must vary: the brand name, a pronoun, or a generic noun.\n")

	if len(matched) > 0 {
		b.WriteString("Pain points this section should address through the product:\n")
		for _, m := range matched {
			b.WriteString(fmt.Sprintf("- %s → %s\n", m.PainPoint, m.Feature))
		}
	}

	if forceInjection {
		b.WriteString("MANDATORY INJECTION: this is one of the final sections and the brand has barely appeared. Work in at least one natural product mention.\n")
	}

	if brief.Link != "" {
		b.WriteString(fmt.Sprintf("Close with a short call to action pointing readers to %s (%s).\n", brief.BrandName, brief.Link))
	}

	return b.String()
}

// matchPainPoints returns the mappings whose pain point or feature shares a
// significant word with the section title.
func matchPainPoints(sectionTitle string, mappings []model.PainPointMapping) []model.PainPointMapping {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(sectionTitle)) {
		if len(w) >= 4 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var matched []model.PainPointMapping
	for _, m := range mappings {
		haystack := strings.ToLower(m.PainPoint + " " + m.Feature)
		for _, w := range words {
			if strings.Contains(haystack, w) {
				matched = append(matched, m)
				break
			}
		}
	}
	return matched
}

func looksCommercial(sectionTitle string) bool {
	title := strings.ToLower(sectionTitle)
	for _, hint := range commercialTitleHints {
		if strings.Contains(title, hint) {
			return true
		}
	}
	return false
}
