package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPARQLStoreGetQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.Query().Get("query"), "SELECT")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(`{
			"head": {"vars": ["name", "population"]},
			"results": {"bindings": [
				{"name": {"type": "literal", "value": "Basel"}, "population": {"type": "literal", "value": "178000"}},
				{"name": {"type": "literal", "value": "Zurich"}, "population": {"type": "literal", "value": "447000"}}
			]}
		}`))
	}))
	defer server.Close()

	store, err := NewSPARQLStore(Config{ReadEndpoint: server.URL})
	require.NoError(t, err)

	result, err := store.GetQuery(context.Background(), "SELECT ?name ?population WHERE { ?c ?p ?o }")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "population"}, result.Columns)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "Basel", asString(result.Records[0]["name"]))
}

func TestSPARQLStoreAskQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"head": {}, "boolean": true}`))
	}))
	defer server.Close()

	store, err := NewSPARQLStore(Config{ReadEndpoint: server.URL})
	require.NoError(t, err)

	require.NoError(t, store.Connect(context.Background()))
	assert.True(t, store.Health(context.Background()).IsHealthy())
}

func TestSPARQLStoreWriteQuery(t *testing.T) {
	var gotUpdate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		gotUpdate = r.PostForm.Get("update")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store, err := NewSPARQLStore(Config{ReadEndpoint: server.URL, WriteEndpoint: server.URL})
	require.NoError(t, err)

	update := `INSERT DATA { <urn:basel> <urn:name> "Basel" }`
	_, err = store.WriteQuery(context.Background(), update)
	require.NoError(t, err)
	assert.Equal(t, update, gotUpdate)
}

func TestSPARQLStoreErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode ErrorCode
	}{
		{"bad request is syntax", http.StatusBadRequest, ErrCodeQuerySyntax},
		{"server error is runtime", http.StatusInternalServerError, ErrCodeQueryRuntime},
		{"unauthorized is connection", http.StatusUnauthorized, ErrCodeConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "malformed query", tt.status)
			}))
			defer server.Close()

			store, err := NewSPARQLStore(Config{ReadEndpoint: server.URL})
			require.NoError(t, err)

			_, err = store.GetQuery(context.Background(), "SELECT broken")
			require.Error(t, err)

			var graphErr *Error
			require.ErrorAs(t, err, &graphErr)
			assert.Equal(t, tt.wantCode, graphErr.Code)
		})
	}
}

func TestSPARQLStoreCurrentState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"head": {"vars": ["s", "p", "o"]},
			"results": {"bindings": [
				{"s": {"type": "uri", "value": "urn:basel"}, "p": {"type": "uri", "value": "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"}, "o": {"type": "uri", "value": "urn:City"}},
				{"s": {"type": "uri", "value": "urn:basel"}, "p": {"type": "uri", "value": "urn:name"}, "o": {"type": "literal", "value": "Basel"}},
				{"s": {"type": "uri", "value": "urn:basel"}, "p": {"type": "uri", "value": "urn:locatedIn"}, "o": {"type": "uri", "value": "urn:ch"}}
			]}
		}`))
	}))
	defer server.Close()

	store, err := NewSPARQLStore(Config{ReadEndpoint: server.URL})
	require.NoError(t, err)

	state, err := store.CurrentState(context.Background())
	require.NoError(t, err)

	require.Len(t, state.Nodes, 2)
	require.Len(t, state.Edges, 1)

	var basel Node
	for _, n := range state.Nodes {
		if n.ID == "urn:basel" {
			basel = n
		}
	}
	assert.Equal(t, "City", basel.Label)
	assert.Equal(t, "Basel", basel.Properties["name"])

	assert.Equal(t, "locatedIn", state.Edges[0].Label)
	assert.Equal(t, "urn:basel", state.Edges[0].Source)
	assert.Equal(t, "urn:ch", state.Edges[0].Target)
}

func TestSPARQLStoreMissingEndpoint(t *testing.T) {
	_, err := NewSPARQLStore(Config{})
	require.Error(t, err)

	var graphErr *Error
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, ErrCodeInvalidConfig, graphErr.Code)
}
