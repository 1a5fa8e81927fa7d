package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/orchestrator"
	"github.com/sells-group/article-cli/internal/progress"
	"github.com/sells-group/article-cli/internal/writer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the generation HTTP API",
	Long:  "Serves the two-phase generation workflow over HTTP: kick off analyze/write cycles, poll status and the progressively rendered document, and cancel in-flight runs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		sink := progress.NewMemory()
		srv := &apiServer{sink: sink}

		orch, err := initOrchestrator(sink, st, srv.confirmDegraded)
		if err != nil {
			return err
		}
		srv.orch = orch

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.routes(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// apiServer exposes one orchestrator over HTTP. There is exactly one
// generation run active at a time; a new request is rejected while one is in
// flight.
type apiServer struct {
	orch *orchestrator.Orchestrator
	sink *progress.Memory

	mu             sync.Mutex
	busy           bool
	acceptDegraded bool
}

// confirmDegraded stands in for the terminal prompt: the caller decides up
// front via accept_degraded whether a degraded analysis may be written.
func (s *apiServer) confirmDegraded([]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acceptDegraded
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/generate", s.handleGenerate)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/write", s.handleWrite)
	r.Post("/cancel", s.handleCancel)
	r.Get("/status", s.handleStatus)
	r.Get("/document", s.handleDocument)
	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Title          string `json:"title"`
	ReferenceText  string `json:"reference_text"`
	CustomOutline  string `json:"custom_outline,omitempty"`
	Audience       string `json:"audience,omitempty"`
	ProductText    string `json:"product_text,omitempty"`
	KnowledgeBase  string `json:"knowledge_base,omitempty"`
	UseRAG         bool   `json:"use_rag,omitempty"`
	AutoImagePlan  bool   `json:"auto_image_plan,omitempty"`
	AcceptDegraded bool   `json:"accept_degraded,omitempty"`
}

func (r generateRequest) config() *model.GenerationConfig {
	return &model.GenerationConfig{
		Title:         r.Title,
		ReferenceText: r.ReferenceText,
		CustomOutline: r.CustomOutline,
		Audience:      r.Audience,
		ProductText:   r.ProductText,
		KnowledgeBase: r.KnowledgeBase,
		UseRAG:        r.UseRAG || r.KnowledgeBase != "",
		AutoImagePlan: r.AutoImagePlan,
	}
}

// handleGenerate runs the full analyze+write cycle asynchronously.
func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeGenerate(w, r)
	if !ok {
		return
	}
	if !s.acquire(w) {
		return
	}
	s.setAcceptDegraded(req.AcceptDegraded)

	go func() {
		defer s.release()
		ctx := context.Background()
		if err := s.orch.Analyze(ctx, req.config()); err != nil {
			zap.L().Error("generate: analyze failed", zap.Error(err))
			return
		}
		if s.orch.Session().CancelToken().Stopped() {
			return
		}
		if err := s.orch.Write(ctx); err != nil {
			zap.L().Error("generate: write failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "title": req.Title})
}

// handleAnalyze runs only the analysis phase asynchronously.
func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeGenerate(w, r)
	if !ok {
		return
	}
	if !s.acquire(w) {
		return
	}

	go func() {
		defer s.release()
		if err := s.orch.Analyze(context.Background(), req.config()); err != nil {
			zap.L().Error("analyze failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "title": req.Title})
}

// handleWrite runs the write phase from the session's stored analysis. The
// degraded-artifact gate is driven by the accept_degraded field instead of a
// terminal prompt.
func (s *apiServer) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AcceptDegraded bool `json:"accept_degraded"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if s.orch.Session().Analysis() == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no analysis available; run analysis first"})
		return
	}
	if !s.acquire(w) {
		return
	}
	s.setAcceptDegraded(req.AcceptDegraded)

	go func() {
		defer s.release()
		if err := s.orch.Write(context.Background()); err != nil {
			zap.L().Error("write failed", zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.orch.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sess := s.orch.Session()
	usage := sess.Usage()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         sess.Status(),
		"step":           sess.Step(),
		"error":          sess.Error(),
		"covered_points": len(sess.CoveredPoints()),
		"llm_calls":      sess.LLMCalls(),
		"total_tokens":   usage.Total(),
		"total_cost":     usage.Cost,
		"progress":       s.sink.Lines(),
	})
}

// handleDocument returns the current document, progressively rendered while
// a run is streaming. ?format=html renders the markdown through goldmark.
func (s *apiServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.orch.Session().Document()

	if r.URL.Query().Get("format") == "html" {
		html, err := writer.RenderHTML(doc)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render failed"})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func (s *apiServer) decodeGenerate(w http.ResponseWriter, r *http.Request) (generateRequest, bool) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if req.Title == "" || req.ReferenceText == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and reference_text are required"})
		return req, false
	}
	return req, true
}

func (s *apiServer) acquire(w http.ResponseWriter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a generation run is already in progress"})
		return false
	}
	s.busy = true
	return true
}

func (s *apiServer) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *apiServer) setAcceptDegraded(v bool) {
	s.mu.Lock()
	s.acceptDegraded = v
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
