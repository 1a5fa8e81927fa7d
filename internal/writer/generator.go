// Package writer turns an analysis bundle into a finished article: section
// list resolution, parallel per-section generation with cross-section
// de-duplication, progressive in-order rendering, and the optional image
// planning phase.
package writer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/progress"
	"github.com/sells-group/article-cli/internal/session"
)

// writingPlaceholder renders in a section slot until its task completes.
const writingPlaceholder = "Writing..."

// fallbackSkeleton is the section list of last resort, used when the caller
// supplied no outline and structure extraction produced nothing.
var fallbackSkeleton = []string{"Introduction", "Core Concepts", "Benefits", "Applications", "Conclusion"}

const imagePlanPrompt = `You are planning illustrations for the finished article below, titled: %s
%s
Article:
%s

Plan up to 4 images, one per major section that benefits from illustration.

Return a valid JSON array:
[{"section_title": "<section the image belongs to>", "prompt": "<image generation prompt>", "caption": "<short caption>"}, ...]`

const refineImagePrompt = `Refine this image generation prompt into a single detailed paragraph an image model can execute directly. Keep the subject; add composition, lighting, and style.
%s
Prompt: %s`

// ContentGenerator runs the write phase.
type ContentGenerator struct {
	gw      gateway.Gateway
	section *SectionGenerator
	sink    progress.Sink
}

// NewContentGenerator creates a ContentGenerator. A nil sink is replaced
// with a no-op.
func NewContentGenerator(gw gateway.Gateway, cfg config.WriterConfig, sink progress.Sink) *ContentGenerator {
	if sink == nil {
		sink = progress.Nop{}
	}
	return &ContentGenerator{gw: gw, section: NewSectionGenerator(gw, cfg), sink: sink}
}

// Generate writes the document for one analyzed config. All output flows
// through the session: the document re-renders after every section
// completion, always in original section order regardless of which tasks
// finish first. A failed section renders as an empty body; it never aborts
// the rest of the document.
func (c *ContentGenerator) Generate(ctx context.Context, sess *session.Session, cfg *model.GenerationConfig, analysis *model.AnalysisResult) {
	tok := sess.CancelToken()

	sections, customOutline := resolveSections(cfg, analysis)
	headings := make([]string, len(sections))
	for i, sec := range sections {
		headings[i] = resolveHeading(sec.Title, analysis, customOutline)
	}
	defaultFacts := factPool(analysis)

	sess.SetStep(fmt.Sprintf("Writing %d sections...", len(sections)))
	c.sink.Log(fmt.Sprintf("Writing %d sections...", len(sections)))

	// Slots are written at most once each, by their owning task, under mu.
	bodies := make([]string, len(sections))
	done := make([]bool, len(sections))
	var mu sync.Mutex
	injected := 0

	render := func() {
		var b strings.Builder
		for i, heading := range headings {
			b.WriteString("## " + heading + "\n\n")
			if !done[i] {
				b.WriteString(writingPlaceholder)
			} else {
				b.WriteString(bodies[i])
			}
			b.WriteString("\n\n")
		}
		sess.SetDocument(strings.TrimRight(b.String(), "\n") + "\n")
	}

	mu.Lock()
	render()
	mu.Unlock()

	titles := make([]string, len(sections))
	for i, sec := range sections {
		titles[i] = sec.Title
	}

	// Unlike the analysis phase, sections launch simultaneously. These calls
	// are shorter and total wall time matters more than burst smoothing.
	g, gCtx := errgroup.WithContext(ctx)
	for i := range sections {
		g.Go(func() error {
			if tok.Stopped() {
				return nil
			}
			sec := sections[i]

			mu.Lock()
			injectedSoFar := injected
			mu.Unlock()

			in := SectionInput{
				Config:             cfg,
				Title:              sec.Title,
				Plan:               &sec,
				Keywords:           sess.Keywords(),
				Previous:           titles[:i],
				Future:             titles[i+1:],
				InjectedCountSoFar: injectedSoFar,
				IsLastSections:     i >= len(sections)-2,
				KeyFacts:           sec.KeyFacts,
			}
			if len(in.KeyFacts) == 0 {
				in.KeyFacts = defaultFacts
			}
			in.Product = analysis.Product
			if analysis.Structure != nil {
				in.Authority = analysis.Structure.Authority
				in.Regional = analysis.Structure.RegionalReplacements
			}
			if analysis.Visual != nil {
				in.VisualStyle = analysis.Visual.StyleSummary
			}

			res, meta, err := c.section.Generate(gCtx, in)
			sess.AddUsage(meta.Usage)

			// A cancel raised while the call was in flight discards the
			// result; the slot keeps its placeholder.
			if tok.Stopped() {
				return nil
			}

			if err != nil {
				zap.L().Warn("writer: section failed",
					zap.String("section", sec.Title),
					zap.Error(err),
				)
				c.sink.Log(fmt.Sprintf("Section %q failed; leaving it blank.", sec.Title))
			} else {
				sess.AddCoveredPoints(res.UsedPoints)
			}

			mu.Lock()
			bodies[i] = res.Content
			done[i] = true
			injected += res.InjectedCount
			render()
			mu.Unlock()

			c.sink.Log(fmt.Sprintf("Section %d/%d complete: %s", i+1, len(sections), sec.Title))
			return nil
		})
	}
	_ = g.Wait()

	if tok.Stopped() {
		// Completed sections keep their results; slots still pending render
		// as the placeholder. Status is left for the orchestrator.
		return
	}

	uncovered := 0
	for _, fact := range defaultFacts {
		if !sess.IsCovered(fact) {
			uncovered++
		}
	}
	if uncovered > 0 {
		c.sink.Log(fmt.Sprintf("Uncovered facts after writing: %d", uncovered))
	}

	if cfg.AutoImagePlan {
		c.runImagePhase(ctx, sess, cfg, analysis)
		if tok.Stopped() {
			return
		}
	}

	sess.SetStatus(model.StatusCompleted)
	sess.SetStep("")
	c.sink.Log("Document complete.")
}

// resolveSections picks the section list, first match wins: the caller's
// custom outline, then the extracted structure (with a synthetic
// Introduction when an intro paragraph was found), then the fixed skeleton.
// The chain guarantees the write phase never has zero sections.
func resolveSections(cfg *model.GenerationConfig, analysis *model.AnalysisResult) ([]model.SectionPlan, bool) {
	if titles := cfg.OutlineTitles(); len(titles) > 0 {
		sections := make([]model.SectionPlan, len(titles))
		for i, t := range titles {
			sections[i] = model.SectionPlan{Title: NormalizeHeading(t)}
		}
		return sections, true
	}

	if analysis.Structure != nil && len(analysis.Structure.Sections) > 0 {
		sections := make([]model.SectionPlan, 0, len(analysis.Structure.Sections)+1)
		if intro := analysis.Structure.IntroParagraph; intro != "" {
			sections = append(sections, model.SectionPlan{
				Title:         "Introduction",
				NarrativePlan: []string{"Open from this extracted intro: " + intro},
				WritingMode:   "direct",
			})
		}
		sections = append(sections, analysis.Structure.Sections...)
		return sections, false
	}

	sections := make([]model.SectionPlan, len(fallbackSkeleton))
	for i, t := range fallbackSkeleton {
		sections[i] = model.SectionPlan{Title: t}
	}
	return sections, false
}

// resolveHeading maps a section title through the heading optimizations,
// highest score wins. Custom outlines are rendered verbatim; the caller
// chose those titles deliberately.
func resolveHeading(title string, analysis *model.AnalysisResult, customOutline bool) string {
	normalized := NormalizeHeading(title)
	if customOutline || analysis.Structure == nil {
		return normalized
	}

	best := normalized
	bestScore := 0.0
	for _, opt := range analysis.Structure.HeadingOptimizations {
		if NormalizeHeading(opt.Before) != normalized && NormalizeHeading(opt.After) != normalized {
			continue
		}
		if opt.Score > bestScore {
			bestScore = opt.Score
			best = NormalizeHeading(opt.After)
		}
	}
	return best
}

// factPool unions the flat fact and USP lists with the per-subheading fact
// lists into one default pool for sections lacking their own facts.
func factPool(analysis *model.AnalysisResult) []string {
	if analysis.Structure == nil {
		return nil
	}
	var lists [][]string
	for _, sec := range analysis.Structure.Sections {
		lists = append(lists, sec.KeyFacts, sec.USPNotes)
		for _, sub := range sec.Subheadings {
			lists = append(lists, sub.KeyFacts)
		}
	}
	return stableUnion(lists...)
}

// runImagePhase plans illustrations from the finished text, then refines
// every planned prompt with an unstaggered fan-out. Per-image failures are
// logged and skipped; the phase never fails the document.
func (c *ContentGenerator) runImagePhase(ctx context.Context, sess *session.Session, cfg *model.GenerationConfig, analysis *model.AnalysisResult) {
	sess.SetStep("Planning images...")

	styleNote := ""
	if analysis.Visual != nil && analysis.Visual.StyleSummary != "" {
		styleNote = "\nMatch this visual style: " + analysis.Visual.StyleSummary + "\n"
	}

	var plans []model.ImagePlan
	meta, err := c.gw.RunJSON(ctx,
		fmt.Sprintf(imagePlanPrompt, cfg.Title, styleNote, sess.Document()),
		gateway.TierBalanced, &plans,
	)
	sess.AddUsage(meta.Usage)
	if err != nil {
		zap.L().Warn("writer: image planning failed", zap.Error(err))
		return
	}
	if len(plans) == 0 {
		return
	}
	c.sink.Log(fmt.Sprintf("Planned %d images.", len(plans)))

	tok := sess.CancelToken()
	g, gCtx := errgroup.WithContext(ctx)
	for i := range plans {
		g.Go(func() error {
			if tok.Stopped() {
				return nil
			}
			refined, imgMeta, imgErr := c.gw.RunText(gCtx,
				fmt.Sprintf(refineImagePrompt, styleNote, plans[i].Prompt),
				gateway.TierFast,
			)
			sess.AddUsage(imgMeta.Usage)
			if imgErr != nil {
				zap.L().Warn("writer: image prompt refinement failed",
					zap.String("section", plans[i].SectionTitle),
					zap.Error(imgErr),
				)
				return nil
			}
			if tok.Stopped() {
				return nil
			}
			plans[i].Prompt = refined
			return nil
		})
	}
	_ = g.Wait()

	sess.SetImagePlans(plans)
}
