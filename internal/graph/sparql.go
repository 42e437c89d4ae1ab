package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

const rdfTypeIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// SPARQLStore implements Store against a SPARQL 1.1 endpoint pair: a
// query endpoint for reads and an update endpoint for writes (the usual
// triple store deployment, e.g. rdf4j repositories).
type SPARQLStore struct {
	readEndpoint  string
	writeEndpoint string
	client        *http.Client
}

// NewSPARQLStore creates a SPARQL store. Connect must be called before use.
func NewSPARQLStore(cfg Config) (*SPARQLStore, error) {
	if cfg.ReadEndpoint == "" {
		return nil, NewConfigError("sparql read endpoint cannot be empty")
	}
	writeEndpoint := cfg.WriteEndpoint
	if writeEndpoint == "" {
		writeEndpoint = cfg.ReadEndpoint
	}

	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SPARQLStore{
		readEndpoint:  cfg.ReadEndpoint,
		writeEndpoint: writeEndpoint,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

// Connect verifies the endpoint answers a trivial ASK query.
func (s *SPARQLStore) Connect(ctx context.Context) error {
	_, err := s.GetQuery(ctx, "ASK { ?s ?p ?o }")
	if err != nil {
		return NewConnectionError("sparql endpoint unreachable", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (s *SPARQLStore) Close(ctx context.Context) error { return nil }

// Health probes the endpoint with an ASK query.
func (s *SPARQLStore) Health(ctx context.Context) types.HealthStatus {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.GetQuery(healthCtx, "ASK { ?s ?p ?o }"); err != nil {
		return types.Unhealthy(fmt.Sprintf("endpoint check failed: %v", err))
	}
	return types.Healthy("sparql endpoint reachable")
}

// WriteLanguage returns the write dialect.
func (s *SPARQLStore) WriteLanguage() QueryLanguage { return LanguageSPARQL }

// ReadLanguage returns the read dialect.
func (s *SPARQLStore) ReadLanguage() QueryLanguage { return LanguageSPARQL }

// WriteQuery posts a SPARQL UPDATE to the update endpoint.
func (s *SPARQLStore) WriteQuery(ctx context.Context, query string) (WriteResult, error) {
	start := time.Now()

	form := url.Values{"update": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.writeEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return WriteResult{}, NewRuntimeError("failed to build update request", err).WithQuery(query)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return WriteResult{}, NewConnectionError("update request failed", err).WithQuery(query)
	}
	defer resp.Body.Close()

	if err := classifySPARQLStatus(resp, query); err != nil {
		return WriteResult{}, err
	}

	// SPARQL UPDATE responses carry no mutation counters; report only
	// that the update was accepted.
	return WriteResult{ExecutionTime: time.Since(start)}, nil
}

// GetQuery sends a SPARQL query to the read endpoint and decodes the
// SPARQL JSON results format.
func (s *SPARQLStore) GetQuery(ctx context.Context, query string) (QueryResult, error) {
	start := time.Now()

	endpoint := s.readEndpoint + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return QueryResult{}, NewRuntimeError("failed to build query request", err).WithQuery(query)
	}
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return QueryResult{}, NewConnectionError("query request failed", err).WithQuery(query)
	}
	defer resp.Body.Close()

	if err := classifySPARQLStatus(resp, query); err != nil {
		return QueryResult{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return QueryResult{}, NewRuntimeError("failed to read query response", err).WithQuery(query)
	}

	qr, err := decodeSPARQLResults(body)
	if err != nil {
		return QueryResult{}, NewRuntimeError("failed to decode query response", err).WithQuery(query)
	}

	qr.ExecutionTime = time.Since(start)
	return qr, nil
}

// CurrentState exports all triples and folds them into the common graph
// shape: rdf:type triples become node labels, literal objects become
// node properties, and IRI objects become edges.
func (s *SPARQLStore) CurrentState(ctx context.Context) (State, error) {
	result, err := s.GetQuery(ctx, "SELECT ?s ?p ?o WHERE { ?s ?p ?o }")
	if err != nil {
		return State{}, &Error{Code: ErrCodeStateExport, Message: "triple export failed", Cause: err}
	}

	nodes := make(map[string]*Node)
	var edges []Edge

	node := func(iri string) *Node {
		if n, ok := nodes[iri]; ok {
			return n
		}
		n := &Node{ID: iri}
		nodes[iri] = n
		return n
	}

	for _, rec := range result.Records {
		subj := asString(rec["s"])
		pred := asString(rec["p"])
		objBinding, _ := rec["o"].(sparqlBindingValue)

		switch {
		case pred == rdfTypeIRI:
			node(subj).Label = localName(objBinding.Value)
		case objBinding.Type == "uri":
			edges = append(edges, Edge{
				ID:     subj + "|" + pred + "|" + objBinding.Value,
				Label:  localName(pred),
				Source: subj,
				Target: objBinding.Value,
			})
			node(subj)
			node(objBinding.Value)
		default:
			n := node(subj)
			if n.Properties == nil {
				n.Properties = make(map[string]any)
			}
			n.Properties[localName(pred)] = objBinding.Value
		}
	}

	state := State{Edges: edges}
	for _, n := range nodes {
		state.Nodes = append(state.Nodes, *n)
	}
	return state, nil
}

// Reset deletes every triple in the store.
func (s *SPARQLStore) Reset(ctx context.Context) error {
	_, err := s.WriteQuery(ctx, "DELETE WHERE { ?s ?p ?o }")
	return err
}

// sparqlBindingValue is one bound value in the SPARQL JSON results
// format, kept in record maps so CurrentState can distinguish IRIs from
// literals.
type sparqlBindingValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (v sparqlBindingValue) String() string { return v.Value }

type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results struct {
		Bindings []map[string]sparqlBindingValue `json:"bindings"`
	} `json:"results"`
}

func decodeSPARQLResults(body []byte) (QueryResult, error) {
	var parsed sparqlResults
	if err := json.Unmarshal(body, &parsed); err != nil {
		return QueryResult{}, err
	}

	// ASK queries return a bare boolean.
	if parsed.Boolean != nil {
		return QueryResult{
			Records: []map[string]any{{"value": *parsed.Boolean}},
			Columns: []string{"value"},
		}, nil
	}

	qr := QueryResult{Columns: parsed.Head.Vars}
	for _, binding := range parsed.Results.Bindings {
		record := make(map[string]any, len(binding))
		for k, v := range binding {
			record[k] = v
		}
		qr.Records = append(qr.Records, record)
	}
	return qr, nil
}

// classifySPARQLStatus maps HTTP status codes onto the repairable
// taxonomy: 400 means the endpoint rejected the query text.
func classifySPARQLStatus(resp *http.Response, query string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NewSyntaxError("endpoint rejected query: "+strings.TrimSpace(string(body)), nil).WithQuery(query)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewConnectionError(fmt.Sprintf("endpoint refused access (status %d)", resp.StatusCode), nil).WithQuery(query)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NewRuntimeError(fmt.Sprintf("endpoint returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body))), nil).WithQuery(query)
	}
}

// localName strips the namespace from an IRI.
func localName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/:"); i >= 0 && i+1 < len(iri) {
		return iri[i+1:]
	}
	return iri
}
