package controller

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/config"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/tool"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Controller drives the iterative graph-building loop: decide whether
// to enhance the graph or attempt a solution, act, and repeat until an
// answer is produced or the iteration budget runs out.
type Controller struct {
	planning  llm.Provider
	execution llm.Provider
	store     graph.Store
	registry  *tool.Registry
	invoker   *tool.Invoker

	planningModel  string
	executionModel string
	temperature    float64

	maxIterations           int
	numNextStepsDecision    int
	maxQueryFixingRetry     int
	maxRetrieveQueryRetry   int
	maxFinalSolutionParsing int
	retrievalMode           string
	gaiaFormatter           bool
	numericRefinement       bool

	retryPolicy llm.RetryPolicy
	usage       *llm.UsageTracker
	snapshotter *graph.Snapshotter
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the logger for controller operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer for distributed tracing.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithSnapshotter enables per-iteration graph snapshots.
func WithSnapshotter(s *graph.Snapshotter) Option {
	return func(c *Controller) {
		if s != nil {
			c.snapshotter = s
		}
	}
}

// WithPlanningModel overrides the model used for planning calls.
func WithPlanningModel(model string) Option {
	return func(c *Controller) {
		c.planningModel = model
	}
}

// WithExecutionModel overrides the model used for execution calls.
func WithExecutionModel(model string) Option {
	return func(c *Controller) {
		c.executionModel = model
	}
}

// WithTemperature sets the sampling temperature for both model roles.
func WithTemperature(t float64) Option {
	return func(c *Controller) {
		if t >= 0 && t <= 1 {
			c.temperature = t
		}
	}
}

// WithRetryPolicy overrides the LLM retry policy.
func WithRetryPolicy(policy llm.RetryPolicy) Option {
	return func(c *Controller) {
		c.retryPolicy = policy
	}
}

// New creates a Controller. The planning provider generates and repairs
// queries; the execution provider drives tool calls and answers.
func New(planning, execution llm.Provider, store graph.Store, registry *tool.Registry, cfg config.ControllerConfig, opts ...Option) *Controller {
	c := &Controller{
		planning:  planning,
		execution: execution,
		store:     store,
		registry:  registry,

		maxIterations:           cfg.MaxIterations,
		numNextStepsDecision:    cfg.NumNextStepsDecision,
		maxQueryFixingRetry:     cfg.MaxQueryFixingRetry,
		maxRetrieveQueryRetry:   cfg.MaxRetrieveQueryRetry,
		maxFinalSolutionParsing: cfg.MaxFinalSolutionParsing,
		retrievalMode:           cfg.RetrievalMode,
		gaiaFormatter:           cfg.GAIAFormatter,
		numericRefinement:       cfg.NumericRefinement,

		retryPolicy: llm.RetryPolicy{
			MaxRetries:     cfg.MaxLLMRetries,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
		},
		usage:  llm.NewUsageTracker(),
		logger: slog.Default(),
		tracer: trace.NewNoopTracerProvider().Tracer("controller"),
	}

	if c.maxIterations <= 0 {
		c.maxIterations = 7
	}
	if c.numNextStepsDecision <= 0 {
		c.numNextStepsDecision = 5
	}
	if c.maxFinalSolutionParsing <= 0 {
		c.maxFinalSolutionParsing = 3
	}
	if c.retrievalMode == "" {
		c.retrievalMode = "query"
	}

	for _, opt := range opts {
		opt(c)
	}

	// The invoker shares the logger installed by the options.
	c.invoker = tool.NewInvoker(registry,
		tool.WithMaxRetries(cfg.MaxToolRetries),
		tool.WithInvokerLogger(c.logger))

	return c
}

// Run executes the loop for one task, optionally accompanied by file
// attachments whose paths are appended to the task text. The context
// bounds the whole run. Exhausting the iteration budget is an expected
// outcome reported as StatusUnresolved, not an error; the error return
// is reserved for invalid tasks and fatal infrastructure failures.
func (c *Controller) Run(ctx context.Context, task string, attachments ...string) (*Result, error) {
	if task == "" {
		return nil, types.NewError(types.ErrRunInvalidTask, "task cannot be empty")
	}

	task, err := attachFiles(task, attachments)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "controller.Run")
	defer span.End()

	runID := types.NewID()
	start := time.Now()

	c.logger.Info("run starting",
		"run_id", runID,
		"max_iterations", c.maxIterations,
		"retrieval_mode", c.retrievalMode,
		"graph_backend", string(c.store.ReadLanguage()))

	result := &Result{
		RunID:  runID,
		Status: StatusUnresolved,
	}

	for iteration := 0; iteration < c.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			result.Err = err
			break
		}

		state, err := c.store.CurrentState(ctx)
		if err != nil {
			return c.finish(result, start, StatusFailed, "", err)
		}

		c.snapshot(runID, iteration, state)

		tally, err := c.decideNextStep(ctx, task, state)
		if err != nil {
			return c.finish(result, start, StatusFailed, "", err)
		}
		result.Votes = append(result.Votes, tally)
		result.Iterations = iteration + 1

		iterState := c.iterationState(iteration, tally)
		c.logger.Debug("iteration state",
			"iteration", iterState.Iteration,
			"insert", iterState.Tally.Insert,
			"retrieve", iterState.Tally.Retrieve,
			"tokens", iterState.UsageSoFar.TotalTokens,
			"tool_invocations", iterState.ToolInvocations)

		if tally.Solve() {
			solution, ok, err := c.solve(ctx, task, state)
			if err != nil {
				return c.finish(result, start, StatusFailed, "", err)
			}
			if ok {
				return c.finish(result, start, StatusSolved, solution, nil)
			}
			// No usable answer this round; keep building the graph.
			continue
		}

		if err := c.enhance(ctx, task, state, tally.InsertReasons); err != nil {
			return c.finish(result, start, StatusFailed, "", err)
		}
	}

	if result.Status == StatusFailed {
		return c.finish(result, start, StatusFailed, "", result.Err)
	}

	// Budget exhausted: force a best-effort answer from whatever the
	// graph holds now.
	state, err := c.store.CurrentState(ctx)
	if err != nil {
		return c.finish(result, start, StatusFailed, "", err)
	}
	c.snapshot(runID, result.Iterations, state)

	solution := c.forcedSolve(ctx, task, state)
	return c.finish(result, start, StatusUnresolved, solution,
		types.NewError(types.ErrRunBudgetExhausted, "iteration budget exhausted without a retrieve majority"))
}

// attachFiles appends attachment paths to the task text. Every path
// must exist at run start; a missing file fails the run before any
// model call.
func attachFiles(task string, attachments []string) (string, error) {
	if len(attachments) == 0 {
		return task, nil
	}

	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\nThe task is accompanied by the following attached files:")
	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return "", types.WrapError(types.ErrRunAttachmentLost, "attachment not accessible: "+path, err)
		}
		b.WriteString("\n- ")
		b.WriteString(path)
	}
	return b.String(), nil
}

func (c *Controller) finish(result *Result, start time.Time, status Status, solution string, err error) (*Result, error) {
	result.Status = status
	result.Solution = solution
	result.Err = err
	result.Duration = time.Since(start)
	result.Usage = c.usage.Total()
	result.LLMCalls = c.usage.TotalCalls()
	result.ToolHistory = c.invoker.History()

	c.logger.Info("run finished",
		"run_id", result.RunID,
		"status", result.Status,
		"iterations", result.Iterations,
		"duration", result.Duration,
		"total_tokens", result.Usage.TotalTokens)

	if status == StatusFailed {
		return result, err
	}
	return result, nil
}

func (c *Controller) snapshot(runID types.ID, iteration int, state graph.State) {
	if err := c.snapshotter.Write(runID, iteration, state); err != nil {
		c.logger.Warn("snapshot failed",
			"run_id", runID,
			"iteration", iteration,
			"error", err)
	}
}

// completePlanning sends one prompt to the planning model with retry
// and usage accounting.
func (c *Controller) completePlanning(ctx context.Context, label, prompt string) (string, error) {
	return c.complete(ctx, c.planning, c.planningModel, label, prompt)
}

// completeExecution sends one prompt to the execution model.
func (c *Controller) completeExecution(ctx context.Context, label, prompt string) (string, error) {
	return c.complete(ctx, c.execution, c.executionModel, label, prompt)
}

func (c *Controller) complete(ctx context.Context, provider llm.Provider, model, label, prompt string) (string, error) {
	req := llm.CompletionRequest{
		Model:       model,
		Messages:    []llm.Message{llm.NewUserMessage(prompt)},
		Temperature: c.temperature,
	}

	resp, err := llm.InvokeWithRetry(ctx, c.logger, c.retryPolicy, label, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return provider.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}

	c.usage.Record(label, resp.Usage)
	return resp.Message.Content, nil
}

// completeExecutionWithTools asks the execution model with the tool
// schema attached and returns the full response.
func (c *Controller) completeExecutionWithTools(ctx context.Context, label, prompt string, tools []llm.ToolDef) (*llm.CompletionResponse, error) {
	req := llm.CompletionRequest{
		Model:       c.executionModel,
		Messages:    []llm.Message{llm.NewUserMessage(prompt)},
		Temperature: c.temperature,
	}

	resp, err := llm.InvokeWithRetry(ctx, c.logger, c.retryPolicy, label, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return c.execution.CompleteWithTools(ctx, req, tools)
	})
	if err != nil {
		return nil, err
	}

	c.usage.Record(label, resp.Usage)
	return resp, nil
}

// Usage exposes the run's accumulated token usage.
func (c *Controller) Usage() *llm.UsageTracker {
	return c.usage
}
