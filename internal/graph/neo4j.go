package graph

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Neo4jStore implements Store on a Neo4j database. Write queries are
// Cypher executed in managed write transactions; read queries run in
// read transactions.
type Neo4jStore struct {
	config Config
	driver neo4j.DriverWithContext
}

// NewNeo4jStore creates a Neo4j store. Connect must be called before use.
func NewNeo4jStore(cfg Config) (*Neo4jStore, error) {
	if cfg.URI == "" {
		return nil, NewConfigError("neo4j URI cannot be empty")
	}
	if cfg.Username == "" {
		return nil, NewConfigError("neo4j username cannot be empty")
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 30 * time.Second
	}

	return &Neo4jStore{config: cfg}, nil
}

// Connect establishes the driver connection with exponential backoff.
func (s *Neo4jStore) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(s.config.Username, s.config.Password, "")

	var driver neo4j.DriverWithContext
	var lastErr error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		var err error
		driver, err = neo4j.NewDriverWithContext(s.config.URI, auth)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				s.driver = driver
				return nil
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return NewConnectionError("connection attempt cancelled", ctx.Err())
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > s.config.ConnectionTimeout {
			delay = s.config.ConnectionTimeout
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return NewConnectionError("connection attempt cancelled", ctx.Err())
		}
	}

	return NewConnectionError(
		fmt.Sprintf("failed to connect after %d attempts", maxRetries), lastErr)
}

// Close releases the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	if err := s.driver.Close(ctx); err != nil {
		return NewConnectionError("failed to close driver", err)
	}
	s.driver = nil
	return nil
}

// Health verifies connectivity with a bounded timeout.
func (s *Neo4jStore) Health(ctx context.Context) types.HealthStatus {
	if s.driver == nil {
		return types.Unhealthy("driver not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.driver.VerifyConnectivity(healthCtx); err != nil {
		return types.Unhealthy(fmt.Sprintf("connectivity check failed: %v", err))
	}

	return types.Healthy("connected to neo4j")
}

// WriteLanguage returns the write dialect.
func (s *Neo4jStore) WriteLanguage() QueryLanguage { return LanguageCypher }

// ReadLanguage returns the read dialect.
func (s *Neo4jStore) ReadLanguage() QueryLanguage { return LanguageCypher }

// WriteQuery executes a Cypher mutation in a managed write transaction.
// The transaction rolls back on failure, leaving the graph unchanged.
func (s *Neo4jStore) WriteQuery(ctx context.Context, query string) (WriteResult, error) {
	if s.driver == nil {
		return WriteResult{}, NewConnectionError("driver not connected", nil)
	}

	start := time.Now()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.config.Database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		neoResult, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		summary, err := neoResult.Consume(ctx)
		if err != nil {
			return nil, err
		}

		wr := WriteResult{}
		if summary != nil && summary.Counters() != nil {
			counters := summary.Counters()
			wr.NodesCreated = counters.NodesCreated()
			wr.EdgesCreated = counters.RelationshipsCreated()
			wr.PropertiesSet = counters.PropertiesSet()
		}
		return wr, nil
	})

	if err != nil {
		return WriteResult{}, classifyNeo4jError("write query failed", query, err)
	}

	wr := result.(WriteResult)
	wr.ExecutionTime = time.Since(start)
	return wr, nil
}

// GetQuery executes a Cypher read in a managed read transaction.
func (s *Neo4jStore) GetQuery(ctx context.Context, query string) (QueryResult, error) {
	if s.driver == nil {
		return QueryResult{}, NewConnectionError("driver not connected", nil)
	}

	start := time.Now()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.config.Database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		neoResult, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		records, err := neoResult.Collect(ctx)
		if err != nil {
			return nil, err
		}

		return convertRecords(records), nil
	})

	if err != nil {
		return QueryResult{}, classifyNeo4jError("read query failed", query, err)
	}

	qr := result.(QueryResult)
	qr.ExecutionTime = time.Since(start)
	return qr, nil
}

// CurrentState exports the full graph with two read queries.
func (s *Neo4jStore) CurrentState(ctx context.Context) (State, error) {
	nodesResult, err := s.GetQuery(ctx,
		"MATCH (n) RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props")
	if err != nil {
		return State{}, &Error{Code: ErrCodeStateExport, Message: "node export failed", Cause: err}
	}

	edgesResult, err := s.GetQuery(ctx,
		"MATCH (a)-[r]->(b) RETURN elementId(r) AS id, type(r) AS label, "+
			"elementId(a) AS source, elementId(b) AS target, properties(r) AS props")
	if err != nil {
		return State{}, &Error{Code: ErrCodeStateExport, Message: "edge export failed", Cause: err}
	}

	state := State{}

	for _, rec := range nodesResult.Records {
		node := Node{
			ID:         asString(rec["id"]),
			Properties: asPropMap(rec["props"]),
		}
		if labels, ok := rec["labels"].([]any); ok && len(labels) > 0 {
			node.Label = asString(labels[0])
		}
		state.Nodes = append(state.Nodes, node)
	}

	for _, rec := range edgesResult.Records {
		state.Edges = append(state.Edges, Edge{
			ID:         asString(rec["id"]),
			Label:      asString(rec["label"]),
			Source:     asString(rec["source"]),
			Target:     asString(rec["target"]),
			Properties: asPropMap(rec["props"]),
		})
	}

	return state, nil
}

// Reset removes all nodes and relationships.
func (s *Neo4jStore) Reset(ctx context.Context) error {
	_, err := s.WriteQuery(ctx, "MATCH (n) DETACH DELETE n")
	return err
}

func convertRecords(records []*neo4j.Record) QueryResult {
	result := QueryResult{
		Records: make([]map[string]any, 0, len(records)),
		Columns: []string{},
	}

	if len(records) > 0 {
		result.Columns = records[0].Keys
	}

	for _, record := range records {
		recordMap := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			recordMap[key] = record.Values[i]
		}
		result.Records = append(result.Records, recordMap)
	}

	return result
}

// classifyNeo4jError maps driver failures onto the repairable taxonomy.
// Syntax rejections carry "SyntaxError" in the server status code.
func classifyNeo4jError(message, query string, err error) error {
	text := err.Error()
	switch {
	case strings.Contains(text, "SyntaxError") || strings.Contains(text, "ParameterMissing"):
		return NewSyntaxError(message, err).WithQuery(query)
	case strings.Contains(text, "ConnectivityError") ||
		strings.Contains(text, "connection") ||
		strings.Contains(text, "Connection"):
		return NewConnectionError(message, err).WithQuery(query)
	default:
		return NewRuntimeError(message, err).WithQuery(query)
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asPropMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && len(m) > 0 {
		return m
	}
	return nil
}
