package controller

import (
	"fmt"
	"strings"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/graph"
)

// dialectGuidance tells the model how to express a query for the
// backend in use.
func dialectGuidance(lang graph.QueryLanguage, write bool) string {
	switch lang {
	case graph.LanguageCypher:
		if write {
			return "Write a single Cypher mutation statement (CREATE/MERGE/SET). Do not include comments."
		}
		return "Write a single Cypher read query (MATCH ... RETURN ...). Do not include comments."
	case graph.LanguageMutation:
		return `Write a JSON document of the form
{"operations": [{"op": "create_node", "id": "...", "label": "...", "properties": {...}},
                {"op": "create_edge", "id": "...", "label": "...", "source": "...", "target": "...", "properties": {...}},
                {"op": "set_node_props", "id": "...", "properties": {...}},
                {"op": "set_edge_props", "id": "...", "properties": {...}}]}
Only these four operations are allowed.`
	case graph.LanguageCEL:
		return `Write a single CEL expression over two bound variables:
  nodes: list of {id: string, label: string, properties: map}
  edges: list of {id: string, label: string, source: string, target: string, properties: map}
Use filter/map/size and field access only, e.g. nodes.filter(n, n.label == "City").map(n, n.properties.name)`
	case graph.LanguageSPARQL:
		if write {
			return "Write a single SPARQL UPDATE (INSERT DATA / DELETE-INSERT). Use full IRIs."
		}
		return "Write a single SPARQL SELECT query. Use full IRIs."
	default:
		return ""
	}
}

func decisionPrompt(task string, state graph.State) string {
	return fmt.Sprintf(`You are solving a task by iteratively building a knowledge graph.

Task: %s

Current knowledge graph:
%s

Decide the next step. If the graph already contains the information needed to answer the task, choose RETRIEVE. If information is still missing, choose INSERT and describe what is missing.

Respond with JSON only: {"mode": "INSERT" or "RETRIEVE", "content": "<what is missing, or what to retrieve>"}`,
		task, state.Render())
}

func mergeReasonsPrompt(reasons []string) string {
	var b strings.Builder
	for i, r := range reasons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return fmt.Sprintf(`Multiple assessments identified missing information:

%s
Merge them into one concise description of the information to gather next. Respond with JSON only: {"content": "<merged description>"}`, b.String())
}

func toolSelectionPrompt(task, reason string, state graph.State) string {
	return fmt.Sprintf(`You are gathering information to extend a knowledge graph.

Task: %s

Missing information: %s

Current knowledge graph:
%s

Call the tools that will obtain the missing information.`,
		task, reason, state.Render())
}

func writeQueryPrompt(task, reason, observation string, state graph.State, lang graph.QueryLanguage) string {
	return fmt.Sprintf(`You are extending a knowledge graph with newly gathered information.

Task: %s

Missing information being added: %s

Gathered information:
%s

Current knowledge graph:
%s

Produce write queries that insert the new information into the graph.
%s

Respond with JSON only: {"queries": ["<query>", ...]}`,
		task, reason, observation, state.Render(), dialectGuidance(lang, true))
}

func fixQueryPrompt(query, failure string, lang graph.QueryLanguage, write bool) string {
	return fmt.Sprintf(`The following query failed.

Query:
%s

Error:
%s

%s

Respond with JSON only: {"query": "<corrected query>"}`,
		query, failure, dialectGuidance(lang, write))
}

func retrieveQueryPrompt(task string, state graph.State, lang graph.QueryLanguage) string {
	return fmt.Sprintf(`You are answering a task from a knowledge graph.

Task: %s

Current knowledge graph:
%s

Produce one read query that retrieves the information needed to answer the task.
%s

Respond with JSON only: {"query": "<query>"}`,
		task, state.Render(), dialectGuidance(lang, false))
}

func solveFromResultPrompt(task, queryResult string) string {
	return fmt.Sprintf(`Task: %s

Query result from the knowledge graph:
%s

Answer the task using the query result. Respond with JSON only: {"final_solution": "<answer>"}`,
		task, queryResult)
}

func solveDirectPrompt(task string, state graph.State) string {
	return fmt.Sprintf(`Task: %s

Knowledge graph:
%s

Answer the task using the knowledge graph. Respond with JSON only: {"final_solution": "<answer>"}`,
		task, state.Render())
}

func forcedSolvePrompt(task string, state graph.State) string {
	return fmt.Sprintf(`Task: %s

Knowledge graph:
%s

You must answer now, even if the graph is incomplete. Give your best answer based on the available information and your own knowledge. Respond with JSON only: {"final_solution": "<answer>"}`,
		task, state.Render())
}

const parseRetryInstruction = `Your previous reply could not be parsed. Respond with JSON only, exactly in the form {"final_solution": "<answer>"}, with no other text.`

func mathRefinementPrompt(task, answer string) string {
	return fmt.Sprintf(`Task: %s

Proposed answer: %s

If the answer requires arithmetic that should be verified, use the available tools to recompute it, then reply with the verified answer. Otherwise reply with the answer unchanged. Respond with JSON only: {"final_solution": "<answer>"}`,
		task, answer)
}

func gaiaFormatPrompt(task, answer string) string {
	return fmt.Sprintf(`Task: %s

Answer: %s

Reformat the answer for exact-match scoring: a number (no thousands separators, no units unless asked), as few words as possible, or a comma-separated list. No full sentences. Respond with JSON only: {"final_solution": "<formatted answer>"}`,
		task, answer)
}
