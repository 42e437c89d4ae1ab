package controller

import (
	"context"
	"errors"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// enhance gathers missing information with tools and writes it into the
// graph. Individual abandoned queries are logged and skipped; partial
// enhancement never aborts the iteration. Fatal graph errors do.
func (c *Controller) enhance(ctx context.Context, task string, state graph.State, reasons []string) error {
	ctx, span := c.tracer.Start(ctx, "controller.enhance")
	defer span.End()

	reason := c.mergeInsertReasons(ctx, reasons)

	observations, err := c.gatherInformation(ctx, task, reason, state)
	if err != nil {
		return err
	}

	if len(observations) == 0 {
		c.logger.Info("enhancement produced no observations", "reason", reason)
		return nil
	}

	for _, observation := range observations {
		if err := c.writeObservation(ctx, task, reason, observation, state); err != nil {
			return err
		}
	}

	return nil
}

// gatherInformation asks the execution model which tools to call and
// invokes them. When the model calls no tools, its own reply becomes
// the observation.
func (c *Controller) gatherInformation(ctx context.Context, task, reason string, state graph.State) ([]string, error) {
	defs := c.registry.Definitions()
	prompt := toolSelectionPrompt(task, reason, state)

	if len(defs) == 0 {
		content, err := c.completeExecution(ctx, "gather", prompt)
		if err != nil {
			return nil, err
		}
		if content == "" {
			return nil, nil
		}
		return []string{content}, nil
	}

	resp, err := c.completeExecutionWithTools(ctx, "gather", prompt, defs)
	if err != nil {
		return nil, err
	}

	if len(resp.Message.ToolCalls) == 0 {
		if resp.Message.Content == "" {
			return nil, nil
		}
		return []string{resp.Message.Content}, nil
	}

	var observations []string
	for _, call := range resp.Message.ToolCalls {
		args, err := call.ParseArguments()
		if err != nil {
			c.logger.Warn("tool call arguments unparsable",
				"tool", call.Name,
				"error", err)
			continue
		}

		observation, err := c.invoker.Invoke(ctx, call.Name, args)
		if err != nil {
			// The invoker degrades tool failures to observations; an
			// error here means the tool does not exist or the context
			// is gone.
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("tool invocation rejected",
				"tool", call.Name,
				"error", err)
			continue
		}

		observations = append(observations, observation)
	}

	return observations, nil
}

// writeObservation turns one observation into write queries and routes
// each through the repair loop.
func (c *Controller) writeObservation(ctx context.Context, task, reason, observation string, state graph.State) error {
	content, err := c.completePlanning(ctx, "write_queries",
		writeQueryPrompt(task, reason, observation, state, c.store.WriteLanguage()))
	if err != nil {
		return err
	}

	payload, err := llm.ExtractJSONAs[struct {
		Queries []string `json:"queries"`
	}](content)
	if err != nil {
		c.logger.Warn("write queries unparsable, skipping observation", "error", err)
		return nil
	}

	exec := func(ctx context.Context, q string) (any, error) {
		return c.store.WriteQuery(ctx, q)
	}

	for _, query := range payload.Queries {
		if query == "" {
			continue
		}

		result, finalQuery, _, err := c.runWithRepair(ctx, query, c.store.WriteLanguage(), true, exec)
		if err != nil {
			if errors.Is(err, ErrQueryAbandoned) || graph.IsRepairable(err) {
				c.logger.Warn("write query skipped", "error", err)
				continue
			}
			return err
		}

		if wr, ok := result.(graph.WriteResult); ok {
			c.logger.Debug("write query executed",
				"query", finalQuery,
				"nodes_created", wr.NodesCreated,
				"edges_created", wr.EdgesCreated,
				"properties_set", wr.PropertiesSet)
		}
	}

	return nil
}
