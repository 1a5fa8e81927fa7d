// Package session holds the shared run context for one analyze+write cycle.
// It replaces ad hoc global state with an explicit blackboard passed by
// reference into each pipeline component, exposing narrow accessors per
// concern. The UI reads partial progress from here while generation runs.
package session

import (
	"sync"

	"github.com/sells-group/article-cli/internal/cost"
	"github.com/sells-group/article-cli/internal/model"
)

// Token is a cooperative cancellation flag. Tasks poll Stopped at every step
// boundary and exit early without raising an error when it reports true.
// In-flight LLM calls are not aborted; only the decision to use their result
// or start the next step is skipped.
type Token struct {
	mu      sync.Mutex
	stopped bool
}

// Cancel sets the flag. Idempotent.
func (t *Token) Cancel() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Stopped reports whether cancellation has been requested.
func (t *Token) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Session is the mutable blackboard for one generation run. All methods are
// safe for concurrent use; section tasks and analysis tasks write through it
// while the UI reads from it.
type Session struct {
	mu       sync.Mutex
	status   model.GenerationStatus
	step     string
	document string
	errMsg   string

	config     *model.GenerationConfig
	analysis   *model.AnalysisResult
	keywords   []model.KeywordActionPlan
	imagePlans []model.ImagePlan

	covered      map[string]struct{}
	coveredOrder []string

	usage *cost.Accumulator

	cancel *Token
}

// New creates an idle Session with a fresh cancellation token.
func New() *Session {
	return &Session{
		status:  model.StatusIdle,
		covered: make(map[string]struct{}),
		usage:   cost.NewAccumulator(),
		cancel:  &Token{},
	}
}

// Reset clears all downstream state and re-arms the cancellation token.
// Called at the start of every Analyze.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = model.StatusIdle
	s.step = ""
	s.document = ""
	s.errMsg = ""
	s.config = nil
	s.analysis = nil
	s.keywords = nil
	s.imagePlans = nil
	s.covered = make(map[string]struct{})
	s.coveredOrder = nil
	s.usage = cost.NewAccumulator()
	s.cancel = &Token{}
}

// CancelToken returns the current run's cancellation token.
func (s *Session) CancelToken() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

// SetStatus transitions the public generation status.
func (s *Session) SetStatus(status model.GenerationStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Status returns the current generation status.
func (s *Session) Status() model.GenerationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetError records a user-facing error message and moves to the error state.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	s.status = model.StatusError
	s.errMsg = msg
	s.mu.Unlock()
}

// Error returns the user-facing error message, if any.
func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// SetStep updates the human-readable step indicator.
func (s *Session) SetStep(step string) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
}

// Step returns the current step indicator.
func (s *Session) Step() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetDocument replaces the current rendered document.
func (s *Session) SetDocument(doc string) {
	s.mu.Lock()
	s.document = doc
	s.mu.Unlock()
}

// Document returns the current rendered document.
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetConfig stores the generation config for later replay by Write.
func (s *Session) SetConfig(cfg *model.GenerationConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

// Config returns the stored generation config, or nil.
func (s *Session) Config() *model.GenerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetAnalysis stores the analysis result bundle.
func (s *Session) SetAnalysis(res *model.AnalysisResult) {
	s.mu.Lock()
	s.analysis = res
	s.mu.Unlock()
}

// Analysis returns the stored analysis result, or nil.
func (s *Session) Analysis() *model.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// SetKeywords stores the accumulated keyword action plans.
func (s *Session) SetKeywords(plans []model.KeywordActionPlan) {
	s.mu.Lock()
	s.keywords = plans
	s.mu.Unlock()
}

// Keywords returns the stored keyword action plans.
func (s *Session) Keywords() []model.KeywordActionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keywords
}

// SetImagePlans stores the post-write image phase output.
func (s *Session) SetImagePlans(plans []model.ImagePlan) {
	s.mu.Lock()
	s.imagePlans = plans
	s.mu.Unlock()
}

// ImagePlans returns the stored image plans.
func (s *Session) ImagePlans() []model.ImagePlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imagePlans
}

// AddCoveredPoints appends newly-reported used facts to the covered set.
// Duplicate reports of the same fact are ignored, so the set is idempotent;
// entries are never removed during a run.
func (s *Session) AddCoveredPoints(points []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if p == "" {
			continue
		}
		if _, ok := s.covered[p]; ok {
			continue
		}
		s.covered[p] = struct{}{}
		s.coveredOrder = append(s.coveredOrder, p)
	}
}

// CoveredPoints returns the covered facts in first-report order.
func (s *Session) CoveredPoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.coveredOrder))
	copy(out, s.coveredOrder)
	return out
}

// IsCovered reports whether a fact has already been used by some section.
func (s *Session) IsCovered(point string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.covered[point]
	return ok
}

// AddUsage records one call's token usage and cost on the run's accumulator.
func (s *Session) AddUsage(u model.TokenUsage) {
	s.mu.Lock()
	s.usage.Record(u)
	s.mu.Unlock()
}

// Usage returns the accumulated token usage and cost.
func (s *Session) Usage() model.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage.Usage()
}

// LLMCalls returns the number of model calls recorded this run.
func (s *Session) LLMCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage.Calls()
}
