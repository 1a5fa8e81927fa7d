package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/session"
)

const describeImagePrompt = `Describe the content and visual style of the image at this URL for an editorial art director. Focus on subject, composition, palette, and tone. Two or three sentences.

Image URL: %s
Alt text: %s`

const styleSummaryPrompt = `You are an editorial art director. Synthesize one overall visual style description from these image notes, suitable as guidance for illustrating a new article.

Image notes:
%s

Return one paragraph of plain text.`

// runVisual describes up to MaxImages reference images sequentially, then
// synthesizes an overall style summary. The loop is deliberately sequential
// rather than fanned out; image calls are the heaviest and burst-dispatching
// them is what trips backend throttling. Each call is individually caught:
// a failed image is skipped, not fatal.
func (p *Pipeline) runVisual(ctx context.Context, tok *session.Token, sess *session.Session, cfg *model.GenerationConfig) (*model.VisualAnalysis, error) {
	if len(cfg.Images) == 0 {
		return nil, nil
	}

	maxImages := p.cfg.MaxImages
	if maxImages <= 0 {
		maxImages = 5
	}
	images := cfg.Images
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	p.sink.Log(fmt.Sprintf("Analyzing %d reference images...", len(images)))
	res := &model.VisualAnalysis{}

	for _, img := range images {
		if tok.Stopped() {
			return res, nil
		}
		text, meta, err := p.gw.RunText(ctx,
			fmt.Sprintf(describeImagePrompt, img.URL, img.Alt),
			gateway.TierFast,
		)
		sess.AddUsage(meta.Usage)
		if err != nil {
			zap.L().Warn("analysis: image description failed",
				zap.String("url", img.URL),
				zap.Error(err),
			)
			continue
		}
		res.Images = append(res.Images, model.ImageNote{URL: img.URL, Description: text})
	}

	if len(res.Images) == 0 || tok.Stopped() {
		return res, nil
	}

	var notes strings.Builder
	for _, note := range res.Images {
		notes.WriteString("- " + note.Description + "\n")
	}

	summary, meta, err := p.gw.RunText(ctx,
		fmt.Sprintf(styleSummaryPrompt, notes.String()),
		gateway.TierFast,
	)
	sess.AddUsage(meta.Usage)
	if err != nil {
		zap.L().Warn("analysis: visual style summary failed", zap.Error(err))
		return res, nil
	}
	res.StyleSummary = summary

	p.sink.Log("Visual style summary ready.")
	return res, nil
}
