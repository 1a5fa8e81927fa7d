// Package analysis runs the five reference-analysis tasks that feed the
// writer: product/brand context, structure + authority extraction, visual
// analysis, regional terminology, and keyword planning.
package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/progress"
	"github.com/sells-group/article-cli/internal/session"
)

// Pipeline runs the analysis phase.
type Pipeline struct {
	gw       gateway.Gateway
	cfg      config.AnalysisConfig
	keywords config.KeywordConfig
	sink     progress.Sink
}

// New creates an analysis Pipeline. A nil sink is replaced with a no-op.
func New(gw gateway.Gateway, cfg config.AnalysisConfig, kwCfg config.KeywordConfig, sink progress.Sink) *Pipeline {
	if sink == nil {
		sink = progress.Nop{}
	}
	return &Pipeline{gw: gw, cfg: cfg, keywords: kwCfg, sink: sink}
}

// scheduledTask pairs an analysis task with its start offset. The offsets
// are the scheduling policy: the backend is shared and bursty, so launching
// every heavy request in the same instant risks throttling. Tasks are
// phase-shifted but still overlap, keeping the critical path near the
// slowest task rather than the sum of all of them.
type scheduledTask struct {
	name   string
	offset time.Duration
	run    func(ctx context.Context) error
}

// Analyze runs the product task to completion, waits briefly, then fans out
// the remaining four tasks on their stagger offsets and joins them. The
// returned bundle is complete to the extent the tasks succeeded; individual
// task failures degrade their slice of the bundle rather than failing the
// phase.
func (p *Pipeline) Analyze(ctx context.Context, sess *session.Session, cfg *model.GenerationConfig) (*model.AnalysisResult, error) {
	tok := sess.CancelToken()
	res := &model.AnalysisResult{}

	// Hard sequencing point: product context informs nothing downstream
	// structurally, but it is the cheapest call and primes the backend
	// before the heavy fan-out.
	p.sink.Log("Analyzing product context...")
	product, err := p.runProduct(ctx, tok, sess, cfg)
	if err != nil {
		zap.L().Warn("analysis: product task failed", zap.Error(err))
	}
	res.Product = product

	if tok.Stopped() {
		return res, nil
	}
	if !waitCancellable(ctx, tok, time.Duration(p.cfg.PostProductWaitMS)*time.Millisecond) {
		return res, nil
	}

	tasks := []scheduledTask{
		{
			name:   "structure",
			offset: time.Duration(p.cfg.StructureOffsetMS) * time.Millisecond,
			run: func(ctx context.Context) error {
				structure, taskErr := p.runStructure(ctx, tok, sess, cfg)
				res.Structure = structure
				return taskErr
			},
		},
		{
			name:   "visual",
			offset: time.Duration(p.cfg.VisualOffsetMS) * time.Millisecond,
			run: func(ctx context.Context) error {
				visual, taskErr := p.runVisual(ctx, tok, sess, cfg)
				res.Visual = visual
				return taskErr
			},
		},
		{
			name:   "regional",
			offset: time.Duration(p.cfg.RegionalOffsetMS) * time.Millisecond,
			run: func(ctx context.Context) error {
				regional, taskErr := p.runRegional(ctx, tok, sess, cfg)
				res.Regional = regional
				return taskErr
			},
		},
		{
			name:   "keywords",
			offset: time.Duration(p.cfg.KeywordOffsetMS) * time.Millisecond,
			run: func(ctx context.Context) error {
				plans, taskErr := p.runKeywords(ctx, tok, sess, cfg)
				res.Keywords = plans
				sess.SetKeywords(plans)
				return taskErr
			},
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			if !waitCancellable(gCtx, tok, task.offset) {
				return nil
			}
			if taskErr := task.run(gCtx); taskErr != nil {
				// Task failures degrade the bundle, they don't fail the phase.
				zap.L().Warn("analysis: task failed",
					zap.String("task", task.name),
					zap.Error(taskErr),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Merge regional findings into the structure result. This is the one
	// exception to task independence; when structure extraction failed the
	// findings have nowhere to live and are dropped.
	if len(res.Regional) > 0 {
		if res.Structure != nil {
			res.Structure.RegionalReplacements = res.Regional
		} else {
			zap.L().Warn("analysis: dropping regional findings, no structure result",
				zap.Int("count", len(res.Regional)),
			)
		}
	}

	p.sink.Log("Analysis complete.")
	return res, nil
}

// waitCancellable sleeps for d, returning false if the context was cancelled
// or the token stopped before or during the wait. A zero or negative d only
// polls the token.
func waitCancellable(ctx context.Context, tok *session.Token, d time.Duration) bool {
	if tok.Stopped() || ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return !tok.Stopped()
	}
}
