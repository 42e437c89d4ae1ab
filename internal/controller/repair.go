package controller

import (
	"context"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/llm"
	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// RepairState tracks where a query is in its lifecycle.
type RepairState string

const (
	StateGenerated  RepairState = "generated"
	StateValidating RepairState = "validating"
	StateExecuted   RepairState = "executed"
	StateRepairing  RepairState = "repairing"
	StateAbandoned  RepairState = "abandoned"
)

// RepairAttempt records one pass through the repair loop.
type RepairAttempt struct {
	Query string      `json:"query"`
	State RepairState `json:"state"`
	Error string      `json:"error,omitempty"`
}

// ErrQueryAbandoned is returned when the repair budget is exhausted.
// The adapter is never called again for an abandoned query.
var ErrQueryAbandoned = types.NewError("RUN_QUERY_ABANDONED", "query abandoned after repair budget exhausted")

// queryExecutor runs a query against the store. It closes over either
// WriteQuery or GetQuery so read and write repair share one protocol.
type queryExecutor func(ctx context.Context, query string) (any, error)

// runWithRepair validates a generated query by executing it and, on a
// repairable failure, asks the planning model to fix it. At most
// maxQueryFixingRetry repairs are attempted before the query is
// abandoned. Returns the execution result, the query that finally ran,
// and the attempt trail.
func (c *Controller) runWithRepair(ctx context.Context, query string, lang graph.QueryLanguage, write bool, exec queryExecutor) (any, string, []RepairAttempt, error) {
	attempts := []RepairAttempt{{Query: query, State: StateGenerated}}

	for attempt := 0; ; attempt++ {
		attempts[len(attempts)-1].State = StateValidating

		result, err := exec(ctx, query)
		if err == nil {
			attempts[len(attempts)-1].State = StateExecuted
			return result, query, attempts, nil
		}

		attempts[len(attempts)-1].Error = err.Error()

		if !graph.IsRepairable(err) {
			attempts[len(attempts)-1].State = StateAbandoned
			return nil, query, attempts, err
		}

		if attempt >= c.maxQueryFixingRetry {
			attempts[len(attempts)-1].State = StateAbandoned
			c.logger.Warn("query abandoned",
				"repairs", attempt,
				"error", err)
			return nil, query, attempts, ErrQueryAbandoned
		}

		attempts[len(attempts)-1].State = StateRepairing
		c.logger.Info("repairing failed query",
			"attempt", attempt+1,
			"max_repairs", c.maxQueryFixingRetry,
			"error", err)

		fixed, ferr := c.repairQuery(ctx, query, graph.FailureDetail(err), lang, write)
		if ferr != nil {
			attempts[len(attempts)-1].State = StateAbandoned
			return nil, query, attempts, ferr
		}

		query = fixed
		attempts = append(attempts, RepairAttempt{Query: query, State: StateGenerated})
	}
}

// repairQuery asks the planning model for a corrected query given the
// failed query and the backend's complaint.
func (c *Controller) repairQuery(ctx context.Context, query, failure string, lang graph.QueryLanguage, write bool) (string, error) {
	content, err := c.completePlanning(ctx, "repair_query", fixQueryPrompt(query, failure, lang, write))
	if err != nil {
		return "", err
	}

	payload, err := llm.ExtractJSONAs[struct {
		Query string `json:"query"`
	}](content)
	if err != nil || payload.Query == "" {
		// An unparsable fix still counts as a repair attempt; reusing
		// the raw reply lets obviously-plain-text fixes through.
		trimmed := llm.TrimQueryText(content)
		if trimmed == "" {
			return query, nil
		}
		return trimmed, nil
	}

	return payload.Query, nil
}
