package controller

import (
	"context"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
)

// DecisionMode is the model's judgment of what the loop should do next.
type DecisionMode string

const (
	// ModeInsert asks for more information to be added to the graph
	ModeInsert DecisionMode = "INSERT"

	// ModeRetrieve asks for the task to be answered from the graph
	ModeRetrieve DecisionMode = "RETRIEVE"
)

// Decision is one sampled next-step judgment.
type Decision struct {
	Mode    DecisionMode `json:"mode"`
	Content string       `json:"content"`
}

// VoteTally summarizes one round of sampled judgments.
type VoteTally struct {
	Insert        int      `json:"insert"`
	Retrieve      int      `json:"retrieve"`
	Invalid       int      `json:"invalid"`
	InsertReasons []string `json:"insert_reasons,omitempty"`
}

// Solve reports the outcome of the vote. The retrieve side must win a
// strict majority of valid votes; ties go to another enhancement round.
func (v VoteTally) Solve() bool {
	return v.Retrieve > v.Insert
}

// decideNextStep samples independent judgments from the planning model
// and tallies them. Samples that fail to parse are counted as invalid
// and do not influence the vote.
func (c *Controller) decideNextStep(ctx context.Context, task string, state graph.State) (VoteTally, error) {
	prompt := decisionPrompt(task, state)

	var tally VoteTally
	for i := 0; i < c.numNextStepsDecision; i++ {
		content, err := c.completePlanning(ctx, "decide", prompt)
		if err != nil {
			return tally, err
		}

		decision, err := llm.ExtractJSONAs[Decision](content)
		if err != nil {
			c.logger.Warn("decision sample unparsable",
				"sample", i+1,
				"error", err)
			tally.Invalid++
			continue
		}

		switch DecisionMode(strings.ToUpper(string(decision.Mode))) {
		case ModeRetrieve:
			tally.Retrieve++
		case ModeInsert:
			tally.Insert++
			if decision.Content != "" {
				tally.InsertReasons = append(tally.InsertReasons, decision.Content)
			}
		default:
			tally.Invalid++
		}
	}

	c.logger.Info("next step decided",
		"insert", tally.Insert,
		"retrieve", tally.Retrieve,
		"invalid", tally.Invalid,
		"solve", tally.Solve())

	return tally, nil
}

// mergeInsertReasons folds multiple sampled reasons into one request.
// A single reason passes through; merge failures fall back to joining.
func (c *Controller) mergeInsertReasons(ctx context.Context, reasons []string) string {
	switch len(reasons) {
	case 0:
		return "Gather the information needed to answer the task."
	case 1:
		return reasons[0]
	}

	content, err := c.completePlanning(ctx, "merge_reasons", mergeReasonsPrompt(reasons))
	if err == nil {
		merged, perr := llm.ExtractJSONAs[struct {
			Content string `json:"content"`
		}](content)
		if perr == nil && merged.Content != "" {
			return merged.Content
		}
	}

	c.logger.Warn("reason merge failed, joining verbatim", "reasons", len(reasons))
	return strings.Join(reasons, "; ")
}
