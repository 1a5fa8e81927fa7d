// Package orchestrator drives the two-phase generation workflow: Analyze
// builds the analysis bundle, Write turns it into a document. Callers (CLI,
// HTTP server) only ever talk to this package and the session blackboard.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-cli/internal/analysis"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/progress"
	"github.com/sells-group/article-cli/internal/session"
	"github.com/sells-group/article-cli/internal/store"
	"github.com/sells-group/article-cli/internal/writer"
)

// ConfirmFunc gates the write phase when analysis artifacts are missing. It
// receives the missing artifact names and returns true to proceed with
// degraded output or false to abort back to idle for re-analysis.
type ConfirmFunc func(missing []string) bool

// Orchestrator owns the generation state machine for one session.
type Orchestrator struct {
	sess     *session.Session
	pipeline *analysis.Pipeline
	writer   *writer.ContentGenerator
	sink     progress.Sink
	confirm  ConfirmFunc

	store store.Store // optional run persistence
	runID string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore enables run persistence.
func WithStore(st store.Store) Option {
	return func(o *Orchestrator) { o.store = st }
}

// WithConfirm sets the degraded-analysis confirmation gate. Without one,
// Write proceeds with whatever the analysis produced.
func WithConfirm(fn ConfirmFunc) Option {
	return func(o *Orchestrator) { o.confirm = fn }
}

// New creates an Orchestrator. A nil sink is replaced with a no-op.
func New(sess *session.Session, pipeline *analysis.Pipeline, cg *writer.ContentGenerator, sink progress.Sink, opts ...Option) *Orchestrator {
	if sink == nil {
		sink = progress.Nop{}
	}
	o := &Orchestrator{sess: sess, pipeline: pipeline, writer: cg, sink: sink}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns the session blackboard callers read progress from.
func (o *Orchestrator) Session() *session.Session {
	return o.sess
}

// Analyze resets the session, stores the config for later replay, and runs
// the analysis pipeline. On success the session moves to analysis_ready; on
// failure to error. If cancellation fired during analysis it returns
// silently without touching status.
func (o *Orchestrator) Analyze(ctx context.Context, cfg *model.GenerationConfig) error {
	o.sess.Reset()
	o.sess.SetConfig(cfg)
	o.sess.SetStatus(model.StatusAnalyzing)
	o.sess.SetStep("Analyzing reference...")

	o.recordRunStart(ctx, cfg.Title)
	phaseID := o.recordPhaseStart(ctx, "analyze")
	start := time.Now()

	res, err := o.pipeline.Analyze(ctx, o.sess, cfg)

	if o.sess.CancelToken().Stopped() {
		o.recordRunStatus(ctx, model.RunStatusCancelled)
		return nil
	}
	if err != nil {
		o.sess.SetError("Analysis failed: " + eris.ToString(err, false))
		o.recordPhaseEnd(ctx, phaseID, "analyze", model.PhaseStatusFailed, start, err)
		o.recordRunStatus(ctx, model.RunStatusFailed)
		return eris.Wrap(err, "orchestrator: analyze")
	}

	o.sess.SetAnalysis(res)
	o.sess.SetStatus(model.StatusAnalysisReady)
	o.sess.SetStep("")
	o.recordPhaseEnd(ctx, phaseID, "analyze", model.PhaseStatusComplete, start, nil)
	return nil
}

// Write produces the document from the stored config and analysis. Both must
// exist; otherwise the caller is told to run analysis first. Missing
// critical artifacts (structure, authority, keyword plans) are surfaced
// through the confirmation gate before writing proceeds.
func (o *Orchestrator) Write(ctx context.Context) error {
	cfg := o.sess.Config()
	res := o.sess.Analysis()
	if cfg == nil || res == nil {
		o.sess.SetError("No analysis available. Run analysis first.")
		return eris.New("orchestrator: run analysis first")
	}

	if missing := degradedArtifacts(res); len(missing) > 0 {
		zap.L().Warn("orchestrator: analysis artifacts missing", zap.Strings("missing", missing))
		if o.confirm != nil && !o.confirm(missing) {
			o.sess.SetStatus(model.StatusIdle)
			o.sink.Log("Write aborted; re-run analysis for complete artifacts.")
			return nil
		}
	}

	o.sess.SetStatus(model.StatusStreaming)
	o.recordRunStatus(ctx, model.RunStatusWriting)
	phaseID := o.recordPhaseStart(ctx, "write")
	start := time.Now()

	o.writer.Generate(ctx, o.sess, cfg, res)

	if o.sess.CancelToken().Stopped() {
		o.recordRunStatus(ctx, model.RunStatusCancelled)
		o.recordDocument(ctx)
		return nil
	}

	o.recordPhaseEnd(ctx, phaseID, "write", model.PhaseStatusComplete, start, nil)
	o.recordDocument(ctx)
	o.recordRunResult(ctx)
	return nil
}

// Cancel requests cooperative cancellation of the active run. Tasks observe
// it at their next step boundary; completed partial results are kept.
func (o *Orchestrator) Cancel() {
	o.sess.CancelToken().Cancel()
	o.sink.Log("Cancellation requested.")
}

// countSections counts the document's top-level section headings.
func countSections(doc string) int {
	n := 0
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "## ") {
			n++
		}
	}
	return n
}

// degradedArtifacts names the critical analysis artifacts that are missing
// or empty.
func degradedArtifacts(res *model.AnalysisResult) []string {
	var missing []string
	if res.Structure == nil || len(res.Structure.Sections) == 0 {
		missing = append(missing, "structure")
	}
	if res.Structure == nil || res.Structure.Authority == nil {
		missing = append(missing, "authority")
	}
	if len(res.Keywords) == 0 {
		missing = append(missing, "keyword plans")
	}
	return missing
}

// Run persistence below is best effort: a storage failure logs a warning and
// never blocks generation.

func (o *Orchestrator) recordRunStart(ctx context.Context, title string) {
	if o.store == nil {
		return
	}
	run, err := o.store.CreateRun(ctx, title)
	if err != nil {
		zap.L().Warn("orchestrator: create run", zap.Error(err))
		return
	}
	o.runID = run.ID
	if err := o.store.UpdateRunStatus(ctx, run.ID, model.RunStatusAnalyzing); err != nil {
		zap.L().Warn("orchestrator: update run status", zap.Error(err))
	}
}

func (o *Orchestrator) recordRunStatus(ctx context.Context, status model.RunStatus) {
	if o.store == nil || o.runID == "" {
		return
	}
	if err := o.store.UpdateRunStatus(ctx, o.runID, status); err != nil {
		zap.L().Warn("orchestrator: update run status", zap.Error(err))
	}
}

func (o *Orchestrator) recordDocument(ctx context.Context) {
	if o.store == nil || o.runID == "" {
		return
	}
	if err := o.store.UpdateRunDocument(ctx, o.runID, o.sess.Document()); err != nil {
		zap.L().Warn("orchestrator: update run document", zap.Error(err))
	}
}

func (o *Orchestrator) recordRunResult(ctx context.Context) {
	if o.store == nil || o.runID == "" {
		return
	}
	usage := o.sess.Usage()
	result := &model.RunResult{
		SectionCount: countSections(o.sess.Document()),
		TotalTokens:  usage.Total(),
		TotalCost:    usage.Cost,
	}
	if err := o.store.UpdateRunResult(ctx, o.runID, result); err != nil {
		zap.L().Warn("orchestrator: update run result", zap.Error(err))
	}
}

func (o *Orchestrator) recordPhaseStart(ctx context.Context, name string) string {
	if o.store == nil || o.runID == "" {
		return ""
	}
	phase, err := o.store.CreatePhase(ctx, o.runID, name)
	if err != nil {
		zap.L().Warn("orchestrator: create phase", zap.Error(err))
		return ""
	}
	return phase.ID
}

func (o *Orchestrator) recordPhaseEnd(ctx context.Context, phaseID, name string, status model.PhaseStatus, start time.Time, phaseErr error) {
	if o.store == nil || phaseID == "" {
		return
	}
	result := &model.PhaseResult{
		Name:       name,
		Status:     status,
		Duration:   time.Since(start).Milliseconds(),
		TokenUsage: o.sess.Usage(),
	}
	if phaseErr != nil {
		result.Error = phaseErr.Error()
	}
	if err := o.store.CompletePhase(ctx, phaseID, result); err != nil {
		zap.L().Warn("orchestrator: complete phase", zap.Error(err))
	}
}
