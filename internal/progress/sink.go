// Package progress delivers human-readable pipeline milestones to the UI.
package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives progress lines from the pipeline. Implementations must never
// block or return errors; a missing listener is not a failure.
type Sink interface {
	Log(message string)
}

// Nop discards all progress lines.
type Nop struct{}

func (Nop) Log(string) {}

// ZapSink forwards progress lines to the global zap logger at info level.
type ZapSink struct{}

func (ZapSink) Log(message string) {
	zap.L().Info("progress", zap.String("message", message))
}

// Memory records progress lines in order; used by tests and the HTTP status
// endpoint. Safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	lines []string
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Log(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, message)
}

// Lines returns a copy of the recorded lines.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}
