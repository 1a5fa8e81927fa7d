package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/article-cli/internal/analysis"
	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/orchestrator"
	"github.com/sells-group/article-cli/internal/progress"
	"github.com/sells-group/article-cli/internal/session"
	"github.com/sells-group/article-cli/internal/store"
	"github.com/sells-group/article-cli/internal/writer"
	"github.com/sells-group/article-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "article.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initOrchestrator wires the full generation stack. The store is optional;
// commands that only inspect runs open it separately.
func initOrchestrator(sink progress.Sink, st store.Store, confirm orchestrator.ConfirmFunc) (*orchestrator.Orchestrator, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (ARTICLE_ANTHROPIC_KEY)")
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	gw := gateway.New(client, cfg.Anthropic, cfg.Gateway)

	sess := session.New()
	pipeline := analysis.New(gw, cfg.Analysis, cfg.Keywords, sink)
	cg := writer.NewContentGenerator(gw, cfg.Writer, sink)

	var opts []orchestrator.Option
	if st != nil {
		opts = append(opts, orchestrator.WithStore(st))
	}
	if confirm != nil {
		opts = append(opts, orchestrator.WithConfirm(confirm))
	}
	return orchestrator.New(sess, pipeline, cg, sink, opts...), nil
}

// loadGenerationConfig builds a GenerationConfig from the shared command
// flags. Reference text comes from a file or stdin ("-").
func loadGenerationConfig(title, referencePath, outlinePath, audience, productPath, knowledgePath string, autoImages bool) (*model.GenerationConfig, error) {
	if title == "" {
		return nil, eris.New("--title is required")
	}

	reference, err := readInput(referencePath)
	if err != nil {
		return nil, eris.Wrap(err, "read reference")
	}
	if strings.TrimSpace(reference) == "" {
		return nil, eris.New("reference text is empty")
	}

	gc := &model.GenerationConfig{
		Title:         title,
		ReferenceText: reference,
		Audience:      audience,
		AutoImagePlan: autoImages,
	}

	if outlinePath != "" {
		outline, err := readInput(outlinePath)
		if err != nil {
			return nil, eris.Wrap(err, "read outline")
		}
		gc.CustomOutline = outline
	}
	if productPath != "" {
		product, err := readInput(productPath)
		if err != nil {
			return nil, eris.Wrap(err, "read product description")
		}
		// A .yaml/.yml product file is a pre-parsed brief; anything else is
		// raw text the product task parses itself.
		switch filepath.Ext(productPath) {
		case ".yaml", ".yml":
			var brief model.ProductBrief
			if err := yaml.Unmarshal([]byte(product), &brief); err != nil {
				return nil, eris.Wrap(err, "parse product brief yaml")
			}
			gc.ProductBrief = &brief
		default:
			gc.ProductText = product
		}
	}
	if knowledgePath != "" {
		knowledge, err := readInput(knowledgePath)
		if err != nil {
			return nil, eris.Wrap(err, "read knowledge base")
		}
		gc.KnowledgeBase = knowledge
		gc.UseRAG = true
	}

	return gc, nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := os.ReadFile("/dev/stdin")
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
