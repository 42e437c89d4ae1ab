package llm

import (
	"sync"
)

// UsageTracker accumulates token usage across a run, broken down by
// operation label. Safe for concurrent use.
type UsageTracker struct {
	mu      sync.Mutex
	total   TokenUsage
	byLabel map[string]TokenUsage
	calls   map[string]int
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		byLabel: make(map[string]TokenUsage),
		calls:   make(map[string]int),
	}
}

// Record adds the usage of one completion under the given label.
func (t *UsageTracker) Record(label string, usage TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total.Add(usage)

	labeled := t.byLabel[label]
	labeled.Add(usage)
	t.byLabel[label] = labeled

	t.calls[label]++
}

// Total returns the aggregate usage across all labels.
func (t *UsageTracker) Total() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// ByLabel returns a copy of the per-label usage breakdown.
func (t *UsageTracker) ByLabel() map[string]TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]TokenUsage, len(t.byLabel))
	for k, v := range t.byLabel {
		out[k] = v
	}
	return out
}

// Calls returns the number of completions recorded under the label.
func (t *UsageTracker) Calls(label string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[label]
}

// TotalCalls returns the number of completions recorded overall.
func (t *UsageTracker) TotalCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, c := range t.calls {
		n += c
	}
	return n
}
