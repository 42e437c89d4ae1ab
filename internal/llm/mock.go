package llm

import (
	"context"
	"sync"
)

// ScriptedProvider is a Provider for tests. It replays a fixed sequence of
// responses or errors and records every request it receives.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []scriptStep
	pos      int
	Requests []CompletionRequest
}

type scriptStep struct {
	resp *CompletionResponse
	err  error
}

// NewScriptedProvider creates an empty scripted provider.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{}
}

// Respond queues a successful assistant response with the given content.
func (p *ScriptedProvider) Respond(content string) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, scriptStep{
		resp: &CompletionResponse{
			Model:        "scripted",
			Message:      NewAssistantMessage(content),
			FinishReason: FinishReasonStop,
		},
	})
	return p
}

// RespondWithToolCalls queues an assistant response that requests the
// given tool calls.
func (p *ScriptedProvider) RespondWithToolCalls(content string, calls ...ToolCall) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := NewAssistantMessage(content)
	msg.ToolCalls = calls
	p.steps = append(p.steps, scriptStep{
		resp: &CompletionResponse{
			Model:        "scripted",
			Message:      msg,
			FinishReason: FinishReasonToolCalls,
		},
	})
	return p
}

// Fail queues an error response.
func (p *ScriptedProvider) Fail(err error) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, scriptStep{err: err})
	return p
}

// Name returns the provider name
func (p *ScriptedProvider) Name() string {
	return "scripted"
}

// Complete replays the next scripted step. When the script runs out the
// last step is repeated, so open-ended loops in tests stay deterministic.
func (p *ScriptedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)

	if len(p.steps) == 0 {
		return nil, NewCompletionError("scripted provider has no responses", nil)
	}

	step := p.steps[p.pos]
	if p.pos < len(p.steps)-1 {
		p.pos++
	}

	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// CompleteWithTools behaves like Complete and ignores the tool definitions.
func (p *ScriptedProvider) CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDef) (*CompletionResponse, error) {
	return p.Complete(ctx, req)
}

// CallCount returns how many completions were requested.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}
