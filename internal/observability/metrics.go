package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for tool traffic.
type Metrics struct {
	mu         sync.Mutex
	toolCalls  map[string]int64
	denials    map[string]int64
	rejections map[string]int64
	errors     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		toolCalls:  make(map[string]int64),
		denials:    make(map[string]int64),
		rejections: make(map[string]int64),
		errors:     make(map[string]int64),
	}
}

// RecordToolCall increments the invocation counter for a tool.
func (m *Metrics) RecordToolCall(tool string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls[tool]++
}

// RecordDenial increments RBAC denial counters keyed by tool and role.
func (m *Metrics) RecordDenial(tool, role string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denials[tool+"|"+role]++
}

// RecordRejection increments validator rejection counters keyed by error code.
func (m *Metrics) RecordRejection(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[code]++
}

// RecordError increments HTTP error counters keyed by route and code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method+" "+path+"|"+code]++
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]map[string]int64{
		"tool_calls": make(map[string]int64, len(m.toolCalls)),
		"denials":    make(map[string]int64, len(m.denials)),
		"rejections": make(map[string]int64, len(m.rejections)),
		"errors":     make(map[string]int64, len(m.errors)),
	}
	for k, v := range m.toolCalls {
		out["tool_calls"][k] = v
	}
	for k, v := range m.denials {
		out["denials"][k] = v
	}
	for k, v := range m.rejections {
		out["rejections"][k] = v
	}
	for k, v := range m.errors {
		out["errors"][k] = v
	}
	return out
}
