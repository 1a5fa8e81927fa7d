package writer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-cli/internal/gateway"
	"github.com/sells-group/article-cli/internal/model"
)

// mockGateway answers gateway calls from a respond function and records every
// prompt, so tests can assert both call counts and prompt contents.
type mockGateway struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	tiers   []gateway.Tier

	// respond maps a prompt to the raw response body. Defaults to an error
	// when unset.
	respond func(prompt string, tier gateway.Tier) (string, error)
	usage   model.TokenUsage
	delay   func(prompt string) time.Duration
}

func (m *mockGateway) record(prompt string, tier gateway.Tier) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.tiers = append(m.tiers, tier)
	return m.calls
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockGateway) run(ctx context.Context, prompt string, tier gateway.Tier) (string, gateway.CallMeta, error) {
	m.record(prompt, tier)

	if m.delay != nil {
		select {
		case <-time.After(m.delay(prompt)):
		case <-ctx.Done():
			return "", gateway.CallMeta{}, ctx.Err()
		}
	}

	if m.respond == nil {
		return "", gateway.CallMeta{}, eris.New("mock: no response configured")
	}
	body, err := m.respond(prompt, tier)
	if err != nil {
		return "", gateway.CallMeta{}, err
	}
	return body, gateway.CallMeta{Usage: m.usage}, nil
}

func (m *mockGateway) RunText(ctx context.Context, prompt string, tier gateway.Tier, _ ...gateway.Option) (string, gateway.CallMeta, error) {
	return m.run(ctx, prompt, tier)
}

func (m *mockGateway) RunJSON(ctx context.Context, prompt string, tier gateway.Tier, out any, _ ...gateway.Option) (gateway.CallMeta, error) {
	body, meta, err := m.run(ctx, prompt, tier)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal([]byte(gateway.CleanJSON(body)), out); err != nil {
		return meta, eris.Wrap(err, "mock: parse json response")
	}
	return meta, nil
}
