package controller

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// solutionPayload is the structured answer format.
type solutionPayload struct {
	FinalSolution string `json:"final_solution"`
}

// solve attempts an answer. ok is false when the model could not
// produce a usable solution this round; the loop then continues
// enhancing. Only fatal errors are returned.
func (c *Controller) solve(ctx context.Context, task string, state graph.State) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "controller.solve")
	defer span.End()

	var answer string
	var ok bool
	var err error

	if c.retrievalMode == "direct" {
		answer, ok, err = c.parseSolution(ctx, "solve_direct", solveDirectPrompt(task, state))
	} else {
		answer, ok, err = c.solveByQuery(ctx, task, state)
	}
	if err != nil || !ok {
		return "", ok, err
	}

	if c.numericRefinement {
		answer = c.refineNumericAnswer(ctx, task, answer)
	}

	if c.gaiaFormatter {
		answer = c.formatAnswer(ctx, task, answer)
	}

	return answer, true, nil
}

// solveByQuery asks the planning model for a read query, executes it
// through the repair loop, and answers from the result. Abandoned
// queries and empty results trigger a fresh query generation, up to the
// retrieve retry budget.
func (c *Controller) solveByQuery(ctx context.Context, task string, state graph.State) (string, bool, error) {
	lang := c.store.ReadLanguage()
	exec := func(ctx context.Context, q string) (any, error) {
		return c.store.GetQuery(ctx, q)
	}

	for generation := 0; generation <= c.maxRetrieveQueryRetry; generation++ {
		content, err := c.completePlanning(ctx, "retrieve_query", retrieveQueryPrompt(task, state, lang))
		if err != nil {
			return "", false, err
		}

		payload, perr := llm.ExtractJSONAs[struct {
			Query string `json:"query"`
		}](content)
		query := payload.Query
		if perr != nil || query == "" {
			query = llm.TrimQueryText(content)
		}
		if query == "" {
			c.logger.Warn("retrieval query generation empty", "generation", generation+1)
			continue
		}

		result, _, _, err := c.runWithRepair(ctx, query, lang, false, exec)
		if err != nil {
			if errors.Is(err, ErrQueryAbandoned) || graph.IsRepairable(err) {
				c.logger.Info("retrieval query abandoned, regenerating",
					"generation", generation+1,
					"max_generations", c.maxRetrieveQueryRetry+1)
				continue
			}
			return "", false, err
		}

		qr, _ := result.(graph.QueryResult)
		if qr.IsEmpty() {
			c.logger.Info("retrieval query returned nothing, regenerating",
				"generation", generation+1)
			continue
		}

		return c.parseSolution(ctx, "solve_from_result",
			solveFromResultPrompt(task, renderQueryResult(qr)))
	}

	c.logger.Warn("retrieval budget exhausted without a usable result")
	return "", false, nil
}

// parseSolution asks for a structured final answer, retrying the parse
// up to the parsing budget with a stricter instruction. All-empty
// parses report not-ok so the forced solution path can take over.
func (c *Controller) parseSolution(ctx context.Context, label, prompt string) (string, bool, error) {
	for attempt := 0; attempt < c.maxFinalSolutionParsing; attempt++ {
		content, err := c.completeExecution(ctx, label, prompt)
		if err != nil {
			return "", false, err
		}

		payload, perr := llm.ExtractJSONAs[solutionPayload](content)
		if perr == nil && strings.TrimSpace(payload.FinalSolution) != "" {
			return strings.TrimSpace(payload.FinalSolution), true, nil
		}

		c.logger.Warn("solution parse failed",
			"attempt", attempt+1,
			"max_attempts", c.maxFinalSolutionParsing)
		prompt = prompt + "\n\n" + parseRetryInstruction
	}

	return "", false, nil
}

// forcedSolve demands a best-effort answer when the budget is gone. The
// retrieval branch runs once more, as if the vote had picked RETRIEVE;
// only when that yields nothing does the model answer from the rendered
// state alone. Any failure degrades to an empty solution; the run still
// terminates.
func (c *Controller) forcedSolve(ctx context.Context, task string, state graph.State) string {
	answer, ok, err := c.solve(ctx, task, state)
	if err == nil && ok {
		return answer
	}
	if err != nil {
		c.logger.Warn("forced retrieval failed", "error", err)
	}

	answer, ok, err = c.parseSolution(ctx, "solve_forced", forcedSolvePrompt(task, state))
	if err != nil || !ok {
		c.logger.Warn("forced solution failed", "error", err)
		return ""
	}

	if c.gaiaFormatter {
		answer = c.formatAnswer(ctx, task, answer)
	}
	return answer
}

// refineNumericAnswer lets the execution model verify arithmetic with
// the registered tools. Failures keep the unrefined answer.
func (c *Controller) refineNumericAnswer(ctx context.Context, task, answer string) string {
	if !containsDigit(answer) {
		return answer
	}

	defs := c.registry.Definitions()
	prompt := mathRefinementPrompt(task, answer)

	var content string
	if len(defs) == 0 {
		var err error
		content, err = c.completeExecution(ctx, "refine_numeric", prompt)
		if err != nil {
			return answer
		}
	} else {
		resp, err := c.completeExecutionWithTools(ctx, "refine_numeric", prompt, defs)
		if err != nil {
			return answer
		}

		// Execute any requested recomputation and give the model the
		// observation for a final verdict.
		if len(resp.Message.ToolCalls) > 0 {
			var observations []string
			for _, call := range resp.Message.ToolCalls {
				args, aerr := call.ParseArguments()
				if aerr != nil {
					continue
				}
				obs, ierr := c.invoker.Invoke(ctx, call.Name, args)
				if ierr != nil {
					continue
				}
				observations = append(observations, obs)
			}

			if len(observations) > 0 {
				content, err = c.completeExecution(ctx, "refine_numeric",
					prompt+"\n\nTool results:\n"+strings.Join(observations, "\n"))
				if err != nil {
					return answer
				}
			} else {
				content = resp.Message.Content
			}
		} else {
			content = resp.Message.Content
		}
	}

	payload, err := llm.ExtractJSONAs[solutionPayload](content)
	if err != nil || strings.TrimSpace(payload.FinalSolution) == "" {
		return answer
	}
	return strings.TrimSpace(payload.FinalSolution)
}

// formatAnswer applies exact-match formatting. Failures keep the
// unformatted answer.
func (c *Controller) formatAnswer(ctx context.Context, task, answer string) string {
	content, err := c.completeExecution(ctx, "format_answer", gaiaFormatPrompt(task, answer))
	if err != nil {
		return answer
	}

	payload, perr := llm.ExtractJSONAs[solutionPayload](content)
	if perr != nil || strings.TrimSpace(payload.FinalSolution) == "" {
		return answer
	}
	return strings.TrimSpace(payload.FinalSolution)
}

// renderQueryResult serializes result rows for prompt embedding.
func renderQueryResult(qr graph.QueryResult) string {
	data, err := json.MarshalIndent(qr.Records, "", "  ")
	if err != nil {
		return "(unrenderable result)"
	}
	return string(data)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
