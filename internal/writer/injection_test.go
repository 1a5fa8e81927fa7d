package writer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/article-cli/internal/model"
)

func testProduct() *model.ProductResult {
	return &model.ProductResult{
		Brief: &model.ProductBrief{
			ProductName: "AquaPure Home Filter",
			BrandName:   "AquaPure",
			Link:        "https://aquapure.example.com",
			Features:    []string{"triple filtration", "smart monitoring"},
			USPs:        []string{"lab certified"},
		},
		Mappings: []model.PainPointMapping{
			{PainPoint: "hard water scale buildup", Feature: "triple filtration", Score: 0.9},
			{PainPoint: "uncertain water quality", Feature: "smart monitoring", Score: 0.8},
			{PainPoint: "costly maintenance", Feature: "self cleaning", Score: 0.5},
		},
	}
}

func TestInjectionPlanEmptyWithoutBrief(t *testing.T) {
	assert.Empty(t, BuildInjectionPlan(nil, nil, "Benefits", 0, false))
	assert.Empty(t, BuildInjectionPlan(&model.ProductResult{}, nil, "Benefits", 0, false))
	assert.Empty(t, BuildInjectionPlan(&model.ProductResult{Brief: &model.ProductBrief{}}, nil, "Benefits", 0, false))
}

func TestInjectionPlanMandatoryDirective(t *testing.T) {
	plan := BuildInjectionPlan(testProduct(), nil, "Conclusion", 1, true)
	assert.Contains(t, plan, "MANDATORY INJECTION")

	plan = BuildInjectionPlan(testProduct(), nil, "Conclusion", 3, true)
	assert.NotContains(t, plan, "MANDATORY INJECTION")

	plan = BuildInjectionPlan(testProduct(), nil, "Conclusion", 1, false)
	assert.NotContains(t, plan, "MANDATORY INJECTION")
}

func TestInjectionPlanSanitizationList(t *testing.T) {
	authority := &model.AuthorityAnalysis{
		CompetitorBrands:   []string{"RivalCo"},
		CompetitorProducts: []string{"RivalFilter X"},
		GenericTerms:       []string{"a leading filter brand"},
	}
	plan := BuildInjectionPlan(testProduct(), authority, "Core Concepts", 0, false)
	assert.Contains(t, plan, "RivalCo")
	assert.Contains(t, plan, "RivalFilter X")
	assert.Contains(t, plan, "a leading filter brand")
	assert.Contains(t, plan, "grammatical subject")
}

func TestInjectionPlanDirectPainPointMatch(t *testing.T) {
	plan := BuildInjectionPlan(testProduct(), nil, "Dealing With Scale Buildup", 0, false)
	assert.Contains(t, plan, "hard water scale buildup")
	assert.NotContains(t, plan, "costly maintenance")
}

func TestInjectionPlanGenericFallbackForSolutionTitles(t *testing.T) {
	// No title keyword matches any mapping, but the title reads commercial,
	// so the first two mappings apply.
	plan := BuildInjectionPlan(testProduct(), nil, "Choosing the Best Solution", 0, false)
	assert.Contains(t, plan, "hard water scale buildup")
	assert.Contains(t, plan, "uncertain water quality")
	assert.NotContains(t, plan, "costly maintenance")
}

func TestInjectionPlanNoFallbackForNeutralTitles(t *testing.T) {
	plan := BuildInjectionPlan(testProduct(), nil, "History of Filtration", 0, false)
	assert.NotContains(t, plan, "uncertain water quality")
}

func TestInjectionPlanDensityCapAndCTA(t *testing.T) {
	plan := BuildInjectionPlan(testProduct(), nil, "Conclusion", 0, true)
	assert.Contains(t, plan, "at most once")
	assert.Contains(t, plan, "https://aquapure.example.com")
	assert.True(t, strings.Contains(plan, "AquaPure Home Filter"))
}
