// Package gateway is the pipeline's single entry point to the LLM backend.
// It owns the tier→model mapping, bounded retry, rate limiting, and a
// circuit breaker, and normalizes responses (fenced JSON, field aliases) so
// consumers work with one canonical shape.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/article-cli/internal/config"
	"github.com/sells-group/article-cli/internal/cost"
	"github.com/sells-group/article-cli/internal/model"
	"github.com/sells-group/article-cli/internal/resilience"
	"github.com/sells-group/article-cli/pkg/anthropic"
)

// Tier selects a pricing/latency profile. The pipeline never depends on a
// specific model identifier beyond this abstraction.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierDeep     Tier = "deep"
)

// CallMeta carries usage, cost, and timing for one gateway call.
type CallMeta struct {
	Usage    model.TokenUsage
	Duration time.Duration
}

// Gateway is the language-model call capability consumed by the pipeline.
type Gateway interface {
	RunText(ctx context.Context, prompt string, tier Tier, opts ...Option) (string, CallMeta, error)
	RunJSON(ctx context.Context, prompt string, tier Tier, out any, opts ...Option) (CallMeta, error)
}

// Option adjusts a single gateway call.
type Option func(*callOptions)

type callOptions struct {
	system    []anthropic.SystemBlock
	maxTokens int64
}

// WithSystem sets system prompt blocks for the call.
func WithSystem(blocks []anthropic.SystemBlock) Option {
	return func(o *callOptions) { o.system = blocks }
}

// WithMaxTokens overrides the default output token budget.
func WithMaxTokens(n int64) Option {
	return func(o *callOptions) { o.maxTokens = n }
}

const defaultMaxTokens = 4096

// LLMGateway implements Gateway over the Anthropic client.
type LLMGateway struct {
	client  anthropic.Client
	models  map[Tier]string
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
	calc    *cost.Calculator
}

// New creates an LLMGateway from configuration.
func New(client anthropic.Client, aiCfg config.AnthropicConfig, gwCfg config.GatewayConfig) *LLMGateway {
	retryCfg := resilience.DefaultRetryConfig()
	if gwCfg.MaxAttempts > 0 {
		retryCfg.MaxAttempts = gwCfg.MaxAttempts
	}
	retryCfg.OnRetry = resilience.RetryLogger("llm call")

	rps := gwCfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := gwCfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &LLMGateway{
		client: client,
		models: map[Tier]string{
			TierFast:     aiCfg.FastModel,
			TierBalanced: aiCfg.BalancedModel,
			TierDeep:     aiCfg.DeepModel,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: resilience.NewBreaker(gwCfg.BreakerThreshold, time.Duration(gwCfg.BreakerCooldownMS)*time.Millisecond),
		retry:   retryCfg,
		calc:    cost.NewCalculator(cost.DefaultRates()),
	}
}

// RunText sends a prompt and returns the response text.
func (g *LLMGateway) RunText(ctx context.Context, prompt string, tier Tier, opts ...Option) (string, CallMeta, error) {
	resp, meta, err := g.call(ctx, prompt, tier, opts...)
	if err != nil {
		return "", meta, err
	}
	return resp.Text(), meta, nil
}

// RunJSON sends a prompt expecting a JSON object response, strips any
// markdown fencing, and unmarshals into out.
func (g *LLMGateway) RunJSON(ctx context.Context, prompt string, tier Tier, out any, opts ...Option) (CallMeta, error) {
	resp, meta, err := g.call(ctx, prompt, tier, opts...)
	if err != nil {
		return meta, err
	}

	cleaned := CleanJSON(resp.Text())
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return meta, eris.Wrap(err, "gateway: parse json response")
	}
	return meta, nil
}

func (g *LLMGateway) call(ctx context.Context, prompt string, tier Tier, opts ...Option) (*anthropic.MessageResponse, CallMeta, error) {
	var meta CallMeta

	options := callOptions{maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(&options)
	}

	modelID, ok := g.models[tier]
	if !ok || modelID == "" {
		return nil, meta, eris.New("gateway: unknown model tier " + string(tier))
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, meta, eris.Wrap(err, "gateway: rate limit wait")
	}
	if err := g.breaker.Allow(); err != nil {
		return nil, meta, err
	}

	req := anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: options.maxTokens,
		System:    options.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	}

	start := time.Now()
	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, req)
	})
	g.breaker.Record(err)
	meta.Duration = time.Since(start)

	if err != nil {
		return nil, meta, eris.Wrap(err, "gateway: create message")
	}

	meta.Usage = model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
	meta.Usage.Cost = g.calc.Claude(modelID,
		meta.Usage.InputTokens, meta.Usage.OutputTokens,
		meta.Usage.CacheCreationTokens, meta.Usage.CacheReadTokens,
	)

	zap.L().Debug("gateway: call complete",
		zap.String("tier", string(tier)),
		zap.String("model", modelID),
		zap.Int("input_tokens", meta.Usage.InputTokens),
		zap.Int("output_tokens", meta.Usage.OutputTokens),
		zap.Float64("cost_usd", meta.Usage.Cost),
		zap.Duration("duration", meta.Duration),
	)

	return resp, meta, nil
}
