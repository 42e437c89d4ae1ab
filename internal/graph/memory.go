package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/uuid"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// MemoryStore implements Store on an in-process directed labeled
// property multigraph. Writes are constrained JSON mutation documents
// and reads are CEL expressions over nodes/edges bindings, so the model
// never supplies executable code.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]Node
	edges map[string]Edge
	env   *cel.Env
}

// mutationDoc is the write dialect accepted by the memory backend.
type mutationDoc struct {
	Operations []mutationOp `json:"operations"`
}

type mutationOp struct {
	Op         string         `json:"op"`
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties"`
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]Node),
		edges: make(map[string]Edge),
	}
}

// Connect compiles the CEL environment. The store itself needs no
// external connection.
func (s *MemoryStore) Connect(ctx context.Context) error {
	env, err := cel.NewEnv(
		cel.Variable("nodes", cel.ListType(cel.DynType)),
		cel.Variable("edges", cel.ListType(cel.DynType)),
	)
	if err != nil {
		return NewConnectionError("failed to build query environment", err)
	}

	s.mu.Lock()
	s.env = env
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Health reports whether the query environment is ready.
func (s *MemoryStore) Health(ctx context.Context) types.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return types.Unhealthy("not connected")
	}
	return types.Healthy(fmt.Sprintf("%d nodes, %d edges", len(s.nodes), len(s.edges)))
}

// WriteLanguage returns the write dialect.
func (s *MemoryStore) WriteLanguage() QueryLanguage { return LanguageMutation }

// ReadLanguage returns the read dialect.
func (s *MemoryStore) ReadLanguage() QueryLanguage { return LanguageCEL }

// WriteQuery applies a mutation document. The document either applies in
// full or not at all: operations run against a copy that replaces the
// live graph only when every operation succeeded.
func (s *MemoryStore) WriteQuery(ctx context.Context, query string) (WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return WriteResult{}, err
	}

	var doc mutationDoc
	if err := json.Unmarshal([]byte(query), &doc); err != nil {
		return WriteResult{}, NewSyntaxError("mutation document is not valid JSON", err).WithQuery(query)
	}
	if len(doc.Operations) == 0 {
		return WriteResult{}, NewSyntaxError("mutation document has no operations", nil).WithQuery(query)
	}

	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := copyNodes(s.nodes)
	edges := copyEdges(s.edges)

	var result WriteResult
	for i, op := range doc.Operations {
		if err := applyOp(nodes, edges, op, &result); err != nil {
			var graphErr *Error
			if e, ok := err.(*Error); ok {
				graphErr = e
			} else {
				graphErr = NewRuntimeError(err.Error(), nil)
			}
			graphErr.Message = fmt.Sprintf("operation %d (%s): %s", i, op.Op, graphErr.Message)
			return WriteResult{}, graphErr.WithQuery(query)
		}
	}

	s.nodes = nodes
	s.edges = edges
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func applyOp(nodes map[string]Node, edges map[string]Edge, op mutationOp, result *WriteResult) error {
	switch op.Op {
	case "create_node":
		id := op.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, exists := nodes[id]; exists {
			return NewRuntimeError("node already exists: "+id, nil)
		}
		if op.Label == "" {
			return NewSyntaxError("create_node requires a label", nil)
		}
		nodes[id] = Node{ID: id, Label: op.Label, Properties: copyProps(op.Properties)}
		result.NodesCreated++
		result.PropertiesSet += len(op.Properties)

	case "create_edge":
		if op.Label == "" {
			return NewSyntaxError("create_edge requires a label", nil)
		}
		if _, ok := nodes[op.Source]; !ok {
			return NewRuntimeError("edge source does not exist: "+op.Source, nil)
		}
		if _, ok := nodes[op.Target]; !ok {
			return NewRuntimeError("edge target does not exist: "+op.Target, nil)
		}
		id := op.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, exists := edges[id]; exists {
			return NewRuntimeError("edge already exists: "+id, nil)
		}
		edges[id] = Edge{
			ID:         id,
			Label:      op.Label,
			Source:     op.Source,
			Target:     op.Target,
			Properties: copyProps(op.Properties),
		}
		result.EdgesCreated++
		result.PropertiesSet += len(op.Properties)

	case "set_node_props":
		node, ok := nodes[op.ID]
		if !ok {
			return NewRuntimeError("node does not exist: "+op.ID, nil)
		}
		if len(op.Properties) == 0 {
			return NewSyntaxError("set_node_props requires properties", nil)
		}
		if node.Properties == nil {
			node.Properties = make(map[string]any, len(op.Properties))
		}
		for k, v := range op.Properties {
			node.Properties[k] = v
			result.PropertiesSet++
		}
		nodes[op.ID] = node

	case "set_edge_props":
		edge, ok := edges[op.ID]
		if !ok {
			return NewRuntimeError("edge does not exist: "+op.ID, nil)
		}
		if len(op.Properties) == 0 {
			return NewSyntaxError("set_edge_props requires properties", nil)
		}
		if edge.Properties == nil {
			edge.Properties = make(map[string]any, len(op.Properties))
		}
		for k, v := range op.Properties {
			edge.Properties[k] = v
			result.PropertiesSet++
		}
		edges[op.ID] = edge

	default:
		return NewSyntaxError("unknown operation: "+op.Op, nil)
	}

	return nil
}

// GetQuery compiles and evaluates a CEL expression against the current
// nodes and edges. Compile failures are syntax errors; evaluation
// failures are runtime errors. Both feed the repair loop.
func (s *MemoryStore) GetQuery(ctx context.Context, query string) (QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return QueryResult{}, err
	}

	s.mu.RLock()
	env := s.env
	nodes := nodesAsBindings(s.nodes)
	edges := edgesAsBindings(s.edges)
	s.mu.RUnlock()

	if env == nil {
		return QueryResult{}, NewConnectionError("store not connected", nil)
	}

	start := time.Now()

	ast, iss := env.Compile(query)
	if iss != nil && iss.Err() != nil {
		return QueryResult{}, NewSyntaxError("expression failed to compile", iss.Err()).WithQuery(query)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return QueryResult{}, NewSyntaxError("expression failed to plan", err).WithQuery(query)
	}

	out, _, err := prg.Eval(map[string]any{
		"nodes": nodes,
		"edges": edges,
	})
	if err != nil {
		return QueryResult{}, NewRuntimeError("expression evaluation failed", err).WithQuery(query)
	}

	qr := resultFromCEL(out)
	qr.ExecutionTime = time.Since(start)
	return qr, nil
}

// CurrentState exports a copy of the graph.
func (s *MemoryStore) CurrentState(ctx context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Nodes: make([]Node, 0, len(s.nodes)),
		Edges: make([]Edge, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		n.Properties = copyProps(n.Properties)
		state.Nodes = append(state.Nodes, n)
	}
	for _, e := range s.edges {
		e.Properties = copyProps(e.Properties)
		state.Edges = append(state.Edges, e)
	}

	sort.Slice(state.Nodes, func(i, j int) bool { return state.Nodes[i].ID < state.Nodes[j].ID })
	sort.Slice(state.Edges, func(i, j int) bool { return state.Edges[i].ID < state.Edges[j].ID })

	return state, nil
}

// Reset clears all nodes and edges.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[string]Node)
	s.edges = make(map[string]Edge)
	return nil
}

func nodesAsBindings(nodes map[string]Node) []any {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]any, 0, len(nodes))
	for _, id := range ids {
		n := nodes[id]
		props := n.Properties
		if props == nil {
			props = map[string]any{}
		}
		out = append(out, map[string]any{
			"id":         n.ID,
			"label":      n.Label,
			"properties": props,
		})
	}
	return out
}

func edgesAsBindings(edges map[string]Edge) []any {
	ids := make([]string, 0, len(edges))
	for id := range edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]any, 0, len(edges))
	for _, id := range ids {
		e := edges[id]
		props := e.Properties
		if props == nil {
			props = map[string]any{}
		}
		out = append(out, map[string]any{
			"id":         e.ID,
			"label":      e.Label,
			"source":     e.Source,
			"target":     e.Target,
			"properties": props,
		})
	}
	return out
}

// resultFromCEL shapes an evaluated value into result rows. Lists of
// maps become one record per map; other lists and scalars use a single
// "value" column.
func resultFromCEL(v ref.Val) QueryResult {
	native := celToNative(v)

	if list, ok := native.([]any); ok {
		records := make([]map[string]any, 0, len(list))
		allMaps := len(list) > 0
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				records = append(records, m)
			} else {
				allMaps = false
				break
			}
		}

		if allMaps {
			return QueryResult{Records: records, Columns: columnsOf(records)}
		}

		records = records[:0]
		for _, item := range list {
			records = append(records, map[string]any{"value": item})
		}
		return QueryResult{Records: records, Columns: []string{"value"}}
	}

	if m, ok := native.(map[string]any); ok {
		records := []map[string]any{m}
		return QueryResult{Records: records, Columns: columnsOf(records)}
	}

	return QueryResult{
		Records: []map[string]any{{"value": native}},
		Columns: []string{"value"},
	}
}

func columnsOf(records []map[string]any) []string {
	if len(records) == 0 {
		return nil
	}
	cols := make([]string, 0, len(records[0]))
	for k := range records[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// celToNative converts an evaluated CEL value into plain Go values.
func celToNative(v ref.Val) any {
	switch t := v.(type) {
	case traits.Lister:
		var out []any
		it := t.Iterator()
		for it.HasNext() == celtypes.True {
			out = append(out, celToNative(it.Next()))
		}
		return out
	case traits.Mapper:
		out := make(map[string]any)
		it := t.Iterator()
		for it.HasNext() == celtypes.True {
			key := it.Next()
			out[fmt.Sprintf("%v", key.Value())] = celToNative(t.Get(key))
		}
		return out
	default:
		return v.Value()
	}
}

func copyNodes(nodes map[string]Node) map[string]Node {
	out := make(map[string]Node, len(nodes))
	for id, n := range nodes {
		n.Properties = copyProps(n.Properties)
		out[id] = n
	}
	return out
}

func copyEdges(edges map[string]Edge) map[string]Edge {
	out := make(map[string]Edge, len(edges))
	for id, e := range edges {
		e.Properties = copyProps(e.Properties)
		out[id] = e
	}
	return out
}

func copyProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
