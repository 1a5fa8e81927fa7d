package writer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/progress"
	"github.com/sells-group/article-cli/internal/session"
)

// sectionBody answers a section prompt with a recognizable body derived from
// the section title embedded in the prompt.
func sectionBody(prompt string, titles []string, usedPoints ...string) (string, error) {
	for _, title := range titles {
		if strings.Contains(prompt, "Section: "+title+"\n") {
			return fmt.Sprintf(`{"content": "body of %s", "usedPoints": %s, "injectedCount": 0}`, title, quoteList(usedPoints)), nil
		}
	}
	return "", eris.New("mock: unrecognized section prompt")
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func TestGenerateCustomOutlineInOrder(t *testing.T) {
	titles := []string{"Alpha", "Beta", "Gamma"}
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return sectionBody(prompt, titles, "shared fact")
		},
		// Reverse completion order: the first section finishes last.
		delay: func(prompt string) time.Duration {
			switch {
			case strings.Contains(prompt, "Section: Alpha"):
				return 30 * time.Millisecond
			case strings.Contains(prompt, "Section: Beta"):
				return 15 * time.Millisecond
			}
			return 0
		},
	}
	sink := progress.NewMemory()
	cg := NewContentGenerator(gw, config.WriterConfig{}, sink)

	sess := session.New()
	cfg := &model.GenerationConfig{Title: "Test Article", CustomOutline: "Alpha\nBeta\nGamma"}
	cg.Generate(context.Background(), sess, cfg, &model.AnalysisResult{})

	doc := sess.Document()
	posAlpha := strings.Index(doc, "## Alpha")
	posBeta := strings.Index(doc, "## Beta")
	posGamma := strings.Index(doc, "## Gamma")
	require.NotEqual(t, -1, posAlpha)
	assert.Less(t, posAlpha, posBeta)
	assert.Less(t, posBeta, posGamma)
	assert.Contains(t, doc, "body of Alpha")
	assert.Contains(t, doc, "body of Beta")
	assert.Contains(t, doc, "body of Gamma")
	assert.NotContains(t, doc, writingPlaceholder)

	assert.Equal(t, model.StatusCompleted, sess.Status())
	assert.Equal(t, 3, gw.callCount())

	// All three sections reported the same fact; it is covered exactly once.
	assert.Equal(t, []string{"shared fact"}, sess.CoveredPoints())
}

func TestGenerateFallbackSkeleton(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return sectionBody(prompt, fallbackSkeleton)
		},
	}
	cg := NewContentGenerator(gw, config.WriterConfig{}, nil)

	sess := session.New()
	cg.Generate(context.Background(), sess, &model.GenerationConfig{Title: "T"}, &model.AnalysisResult{})

	doc := sess.Document()
	for _, title := range fallbackSkeleton {
		assert.Contains(t, doc, "## "+title)
	}
	assert.Equal(t, len(fallbackSkeleton), gw.callCount())
	assert.Equal(t, model.StatusCompleted, sess.Status())
}

func TestGenerateStructureSynthesizesIntroduction(t *testing.T) {
	analysis := &model.AnalysisResult{
		Structure: &model.StructureResult{
			IntroParagraph: "Opening paragraph from the reference.",
			Sections: []model.SectionPlan{
				{Title: "Core Concepts"},
				{Title: "Applications"},
			},
		},
	}
	titles := []string{"Introduction", "Core Concepts", "Applications"}
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return sectionBody(prompt, titles)
		},
	}
	cg := NewContentGenerator(gw, config.WriterConfig{}, nil)

	sess := session.New()
	cg.Generate(context.Background(), sess, &model.GenerationConfig{Title: "T"}, analysis)

	doc := sess.Document()
	assert.True(t, strings.HasPrefix(doc, "## Introduction"))
	assert.Contains(t, doc, "## Core Concepts")
	assert.Equal(t, 3, gw.callCount())
}

func TestGenerateSectionFailureLeavesBlank(t *testing.T) {
	titles := []string{"Alpha", "Beta"}
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			if strings.Contains(prompt, "Section: Beta") {
				return "", eris.New("backend down")
			}
			return sectionBody(prompt, titles)
		},
	}
	sink := progress.NewMemory()
	cg := NewContentGenerator(gw, config.WriterConfig{}, sink)

	sess := session.New()
	cfg := &model.GenerationConfig{Title: "T", CustomOutline: "Alpha\nBeta"}
	cg.Generate(context.Background(), sess, cfg, &model.AnalysisResult{})

	doc := sess.Document()
	assert.Contains(t, doc, "body of Alpha")
	assert.Contains(t, doc, "## Beta")
	assert.NotContains(t, doc, writingPlaceholder)
	assert.Equal(t, model.StatusCompleted, sess.Status())

	assert.Contains(t, sink.Lines(), `Section "Beta" failed; leaving it blank.`)
}

func TestGenerateCancelledBeforeStart(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return sectionBody(prompt, []string{"Alpha", "Beta"})
		},
	}
	cg := NewContentGenerator(gw, config.WriterConfig{}, nil)

	sess := session.New()
	sess.CancelToken().Cancel()
	cfg := &model.GenerationConfig{Title: "T", CustomOutline: "Alpha\nBeta"}
	cg.Generate(context.Background(), sess, cfg, &model.AnalysisResult{})

	// Every slot still shows the placeholder and no model call was made.
	doc := sess.Document()
	assert.Equal(t, 2, strings.Count(doc, writingPlaceholder))
	assert.Equal(t, 0, gw.callCount())
	assert.NotEqual(t, model.StatusCompleted, sess.Status())
}

func TestGenerateCancelDiscardsInFlightSections(t *testing.T) {
	titles := []string{"Alpha", "Beta"}
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return sectionBody(prompt, titles)
		},
		delay: func(prompt string) time.Duration {
			if strings.Contains(prompt, "Section: Beta") {
				return 150 * time.Millisecond
			}
			return 0
		},
	}
	cg := NewContentGenerator(gw, config.WriterConfig{}, nil)

	sess := session.New()
	time.AfterFunc(50*time.Millisecond, sess.CancelToken().Cancel)
	cfg := &model.GenerationConfig{Title: "T", CustomOutline: "Alpha\nBeta"}
	cg.Generate(context.Background(), sess, cfg, &model.AnalysisResult{})

	// Alpha finished before the cancel and keeps its body. Beta's call was
	// still in flight when the cancel landed, so its result is discarded and
	// the slot keeps the placeholder.
	doc := sess.Document()
	assert.Contains(t, doc, "body of Alpha")
	assert.NotContains(t, doc, "body of Beta")
	assert.Equal(t, 1, strings.Count(doc, writingPlaceholder))
	assert.NotEqual(t, model.StatusCompleted, sess.Status())
}

func TestGenerateReportsUncoveredFacts(t *testing.T) {
	analysis := &model.AnalysisResult{
		Structure: &model.StructureResult{
			Sections: []model.SectionPlan{
				{Title: "Source Section", KeyFacts: []string{"shared fact", "unused fact"}},
			},
		},
	}
	titles := []string{"Alpha", "Beta"}
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			return sectionBody(prompt, titles, "shared fact")
		},
	}
	sink := progress.NewMemory()
	cg := NewContentGenerator(gw, config.WriterConfig{}, sink)

	sess := session.New()
	cfg := &model.GenerationConfig{Title: "T", CustomOutline: "Alpha\nBeta"}
	cg.Generate(context.Background(), sess, cfg, analysis)

	assert.Equal(t, []string{"shared fact"}, sess.CoveredPoints())
	assert.Contains(t, sink.Lines(), "Uncovered facts after writing: 1")
}

func TestGenerateImagePhase(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			switch {
			case strings.Contains(prompt, "planning illustrations"):
				return `[{"section_title": "Alpha", "prompt": "rough sketch", "caption": "cap"}]`, nil
			case strings.Contains(prompt, "Refine this image"):
				return "detailed refined prompt", nil
			}
			return sectionBody(prompt, []string{"Alpha"})
		},
	}
	cg := NewContentGenerator(gw, config.WriterConfig{}, nil)

	sess := session.New()
	cfg := &model.GenerationConfig{Title: "T", CustomOutline: "Alpha", AutoImagePlan: true}
	cg.Generate(context.Background(), sess, cfg, &model.AnalysisResult{})

	plans := sess.ImagePlans()
	require.Len(t, plans, 1)
	assert.Equal(t, "Alpha", plans[0].SectionTitle)
	assert.Equal(t, "detailed refined prompt", plans[0].Prompt)
	assert.Equal(t, model.StatusCompleted, sess.Status())
}

func TestGenerateCancelDuringImageRefinement(t *testing.T) {
	gw := &mockGateway{
		respond: func(prompt string, tier gateway.Tier) (string, error) {
			switch {
			case strings.Contains(prompt, "planning illustrations"):
				return `[{"section_title": "Alpha", "prompt": "rough sketch", "caption": "cap"}]`, nil
			case strings.Contains(prompt, "Refine this image"):
				return "detailed refined prompt", nil
			}
			return sectionBody(prompt, []string{"Alpha"})
		},
		delay: func(prompt string) time.Duration {
			if strings.Contains(prompt, "Refine this image") {
				return 150 * time.Millisecond
			}
			return 0
		},
	}
	cg := NewContentGenerator(gw, config.WriterConfig{}, nil)

	sess := session.New()
	time.AfterFunc(50*time.Millisecond, sess.CancelToken().Cancel)
	cfg := &model.GenerationConfig{Title: "T", CustomOutline: "Alpha", AutoImagePlan: true}
	cg.Generate(context.Background(), sess, cfg, &model.AnalysisResult{})

	// The refinement landed after the cancel, so the plan keeps its
	// unrefined prompt and the run is not marked completed.
	plans := sess.ImagePlans()
	require.Len(t, plans, 1)
	assert.Equal(t, "rough sketch", plans[0].Prompt)
	assert.NotEqual(t, model.StatusCompleted, sess.Status())
}

func TestResolveSectionsPrecedence(t *testing.T) {
	analysis := &model.AnalysisResult{
		Structure: &model.StructureResult{
			Sections: []model.SectionPlan{{Title: "From Structure"}},
		},
	}

	// Custom outline wins over structure.
	sections, custom := resolveSections(&model.GenerationConfig{CustomOutline: "## One\nTwo"}, analysis)
	require.Len(t, sections, 2)
	assert.True(t, custom)
	assert.Equal(t, "One", sections[0].Title)
	assert.Equal(t, "Two", sections[1].Title)

	// Structure without intro paragraph passes through as-is.
	sections, custom = resolveSections(&model.GenerationConfig{}, analysis)
	require.Len(t, sections, 1)
	assert.False(t, custom)
	assert.Equal(t, "From Structure", sections[0].Title)

	// Nothing at all falls back to the skeleton.
	sections, _ = resolveSections(&model.GenerationConfig{}, &model.AnalysisResult{})
	require.Len(t, sections, len(fallbackSkeleton))
	assert.Equal(t, "Introduction", sections[0].Title)
	assert.Equal(t, "Conclusion", sections[len(sections)-1].Title)
}

func TestResolveHeadingHighestScoreWins(t *testing.T) {
	analysis := &model.AnalysisResult{
		Structure: &model.StructureResult{
			HeadingOptimizations: []model.HeadingOptimization{
				{Before: "Old Title", After: "Better Title", Score: 0.6},
				{Before: "Old Title", After: "Best Title", Score: 0.9},
				{Before: "Unrelated", After: "Nope", Score: 1.0},
			},
		},
	}

	assert.Equal(t, "Best Title", resolveHeading("Old Title", analysis, false))
	assert.Equal(t, "Untouched", resolveHeading("Untouched", analysis, false))

	// Custom outline titles render verbatim, no optimization applied.
	assert.Equal(t, "Old Title", resolveHeading("Old Title", analysis, true))
}

func TestFactPool(t *testing.T) {
	analysis := &model.AnalysisResult{
		Structure: &model.StructureResult{
			Sections: []model.SectionPlan{
				{
					Title:    "A",
					KeyFacts: []string{"f1", "f2"},
					USPNotes: []string{"u1"},
					Subheadings: []model.Subheading{
						{Title: "A1", KeyFacts: []string{"f2", "f3"}},
					},
				},
			},
		},
	}
	assert.Equal(t, []string{"f1", "f2", "u1", "f3"}, factPool(analysis))
	assert.Nil(t, factPool(&model.AnalysisResult{}))
}
