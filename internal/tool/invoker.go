package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Invocation is one recorded tool execution attempt.
type Invocation struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Attempt   int            `json:"attempt"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Cached    bool           `json:"cached,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`
}

// Succeeded reports whether the attempt produced a result.
func (i Invocation) Succeeded() bool {
	return i.Error == ""
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithMaxRetries sets how many additional attempts follow a transient
// failure.
func WithMaxRetries(n int) InvokerOption {
	return func(inv *Invoker) {
		if n >= 0 {
			inv.maxRetries = n
		}
	}
}

// WithInvokerLogger sets the logger.
func WithInvokerLogger(logger *slog.Logger) InvokerOption {
	return func(inv *Invoker) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		if d > 0 {
			inv.backoff = d
		}
	}
}

// Invoker executes tools with bounded retries, an invocation history,
// and a result cache keyed by tool name and canonical arguments. The
// caller always receives an observation string; tool failures degrade
// to a labeled failure message instead of aborting the loop.
type Invoker struct {
	registry   *Registry
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	history []Invocation
	cache   map[string]string
}

// NewInvoker creates an invoker over the given registry.
func NewInvoker(registry *Registry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		registry:   registry,
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
		logger:     slog.Default(),
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs the named tool. Transient failures are retried with
// jittered exponential backoff; permanent failures and retry exhaustion
// yield a labeled failure observation. Successful results are cached so
// repeated identical calls cost nothing.
func (inv *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, err := inv.registry.Get(name)
	if err != nil {
		return "", err
	}

	key := cacheKey(name, args)

	inv.mu.Lock()
	if cached, ok := inv.cache[key]; ok {
		inv.history = append(inv.history, Invocation{
			Tool:      name,
			Args:      args,
			Attempt:   0,
			Result:    cached,
			Cached:    true,
			Timestamp: time.Now(),
		})
		inv.mu.Unlock()
		return cached, nil
	}
	inv.mu.Unlock()

	backoff := inv.backoff
	var lastErr error

	for attempt := 0; attempt <= inv.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(rand.Int63n(int64(backoff)) + 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
		}

		start := time.Now()
		result, err := t.Execute(ctx, args)
		record := Invocation{
			Tool:      name,
			Args:      args,
			Attempt:   attempt + 1,
			Duration:  time.Since(start),
			Timestamp: start,
		}

		if err == nil {
			record.Result = result
			inv.mu.Lock()
			inv.history = append(inv.history, record)
			inv.cache[key] = result
			inv.mu.Unlock()
			return result, nil
		}

		record.Error = err.Error()
		inv.mu.Lock()
		inv.history = append(inv.history, record)
		inv.mu.Unlock()

		lastErr = err
		if !IsTransient(err) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			inv.logger.Warn("tool failed permanently",
				"tool", name,
				"error", err)
			return failureObservation(name, err), nil
		}

		inv.logger.Warn("tool failed, retrying",
			"tool", name,
			"attempt", attempt+1,
			"max_attempts", inv.maxRetries+1,
			"error", err)
	}

	exhausted := types.WrapError(ErrToolRetriesExhausted,
		fmt.Sprintf("gave up after %d attempts", inv.maxRetries+1), lastErr)
	inv.logger.Warn("tool retries exhausted",
		"tool", name,
		"attempts", inv.maxRetries+1,
		"error", lastErr)
	return failureObservation(name, exhausted), nil
}

// History returns a copy of all recorded invocations.
func (inv *Invoker) History() []Invocation {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]Invocation(nil), inv.history...)
}

// Attempts counts the non-cached execution attempts for a tool.
func (inv *Invoker) Attempts(name string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	n := 0
	for _, rec := range inv.history {
		if rec.Tool == name && !rec.Cached {
			n++
		}
	}
	return n
}

// failureObservation renders a tool failure as text the model can see.
func failureObservation(name string, err error) string {
	return fmt.Sprintf("Tool %q failed: %v", name, err)
}

// cacheKey builds a canonical key from the tool name and arguments.
// encoding/json sorts map keys, so equal argument maps always produce
// the same key.
func cacheKey(name string, args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", args))
	}
	return name + ":" + string(data)
}
