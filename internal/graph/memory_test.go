package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectedMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Connect(context.Background()))
	return store
}

const seedMutation = `{
	"operations": [
		{"op": "create_node", "id": "basel", "label": "City", "properties": {"name": "Basel", "population": 178000}},
		{"op": "create_node", "id": "zurich", "label": "City", "properties": {"name": "Zurich", "population": 447000}},
		{"op": "create_node", "id": "ch", "label": "Country", "properties": {"name": "Switzerland"}},
		{"op": "create_edge", "id": "e1", "label": "LOCATED_IN", "source": "basel", "target": "ch"},
		{"op": "create_edge", "id": "e2", "label": "LOCATED_IN", "source": "zurich", "target": "ch"}
	]
}`

func TestMemoryStoreWriteQuery(t *testing.T) {
	store := newConnectedMemoryStore(t)

	result, err := store.WriteQuery(context.Background(), seedMutation)
	require.NoError(t, err)
	assert.Equal(t, 3, result.NodesCreated)
	assert.Equal(t, 2, result.EdgesCreated)
	assert.Equal(t, 5, result.PropertiesSet)
	assert.True(t, result.Changed())

	state, err := store.CurrentState(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 3)
	assert.Len(t, state.Edges, 2)
}

func TestMemoryStoreWriteQuerySetProps(t *testing.T) {
	store := newConnectedMemoryStore(t)
	_, err := store.WriteQuery(context.Background(), seedMutation)
	require.NoError(t, err)

	result, err := store.WriteQuery(context.Background(), `{
		"operations": [
			{"op": "set_node_props", "id": "basel", "properties": {"canton": "Basel-Stadt"}},
			{"op": "set_edge_props", "id": "e1", "properties": {"since": 1501}}
		]
	}`)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PropertiesSet)

	state, err := store.CurrentState(context.Background())
	require.NoError(t, err)
	for _, n := range state.Nodes {
		if n.ID == "basel" {
			assert.Equal(t, "Basel-Stadt", n.Properties["canton"])
		}
	}
}

func TestMemoryStoreWriteQueryErrors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode ErrorCode
	}{
		{
			name:     "malformed json",
			query:    `{"operations": [`,
			wantCode: ErrCodeQuerySyntax,
		},
		{
			name:     "no operations",
			query:    `{"operations": []}`,
			wantCode: ErrCodeQuerySyntax,
		},
		{
			name:     "unknown op",
			query:    `{"operations": [{"op": "drop_everything"}]}`,
			wantCode: ErrCodeQuerySyntax,
		},
		{
			name:     "missing label",
			query:    `{"operations": [{"op": "create_node", "id": "x"}]}`,
			wantCode: ErrCodeQuerySyntax,
		},
		{
			name:     "dangling edge endpoint",
			query:    `{"operations": [{"op": "create_edge", "label": "KNOWS", "source": "ghost", "target": "basel"}]}`,
			wantCode: ErrCodeQueryRuntime,
		},
		{
			name:     "set props on missing node",
			query:    `{"operations": [{"op": "set_node_props", "id": "ghost", "properties": {"a": 1}}]}`,
			wantCode: ErrCodeQueryRuntime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newConnectedMemoryStore(t)
			_, err := store.WriteQuery(context.Background(), seedMutation)
			require.NoError(t, err)

			_, err = store.WriteQuery(context.Background(), tt.query)
			require.Error(t, err)

			var graphErr *Error
			require.ErrorAs(t, err, &graphErr)
			assert.Equal(t, tt.wantCode, graphErr.Code)
			assert.Equal(t, tt.query, graphErr.Query)
		})
	}
}

func TestMemoryStoreFailedWriteRollsBack(t *testing.T) {
	store := newConnectedMemoryStore(t)
	_, err := store.WriteQuery(context.Background(), seedMutation)
	require.NoError(t, err)

	before, err := store.CurrentState(context.Background())
	require.NoError(t, err)

	// First operation is valid, second fails; neither must apply.
	_, err = store.WriteQuery(context.Background(), `{
		"operations": [
			{"op": "create_node", "id": "bern", "label": "City"},
			{"op": "create_edge", "label": "LOCATED_IN", "source": "bern", "target": "ghost"}
		]
	}`)
	require.Error(t, err)

	after, err := store.CurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMemoryStoreGetQuery(t *testing.T) {
	store := newConnectedMemoryStore(t)
	_, err := store.WriteQuery(context.Background(), seedMutation)
	require.NoError(t, err)

	t.Run("filter nodes", func(t *testing.T) {
		result, err := store.GetQuery(context.Background(),
			`nodes.filter(n, n.label == "City").map(n, n.properties.name)`)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)
		assert.Equal(t, []string{"value"}, result.Columns)
		assert.Equal(t, "Basel", result.Records[0]["value"])
		assert.Equal(t, "Zurich", result.Records[1]["value"])
	})

	t.Run("scalar aggregate", func(t *testing.T) {
		result, err := store.GetQuery(context.Background(),
			`nodes.filter(n, n.label == "City").size()`)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.EqualValues(t, 2, result.Records[0]["value"])
	})

	t.Run("edge traversal", func(t *testing.T) {
		result, err := store.GetQuery(context.Background(),
			`edges.filter(e, e.label == "LOCATED_IN" && e.target == "ch").map(e, e.source)`)
		require.NoError(t, err)
		assert.Len(t, result.Records, 2)
	})

	t.Run("list of maps becomes records", func(t *testing.T) {
		result, err := store.GetQuery(context.Background(),
			`nodes.filter(n, n.label == "Country")`)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.ElementsMatch(t, []string{"id", "label", "properties"}, result.Columns)
		assert.Equal(t, "ch", result.Records[0]["id"])
	})

	t.Run("compile error is syntax", func(t *testing.T) {
		_, err := store.GetQuery(context.Background(), `nodes.filter(n,`)
		var graphErr *Error
		require.ErrorAs(t, err, &graphErr)
		assert.Equal(t, ErrCodeQuerySyntax, graphErr.Code)
	})

	t.Run("eval error is runtime", func(t *testing.T) {
		_, err := store.GetQuery(context.Background(), `nodes[0].properties.missing_key`)
		var graphErr *Error
		require.ErrorAs(t, err, &graphErr)
		assert.Equal(t, ErrCodeQueryRuntime, graphErr.Code)
	})
}

func TestMemoryStoreReset(t *testing.T) {
	store := newConnectedMemoryStore(t)
	_, err := store.WriteQuery(context.Background(), seedMutation)
	require.NoError(t, err)

	require.NoError(t, store.Reset(context.Background()))

	state, err := store.CurrentState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
}

func TestReplayedWritesProduceIdenticalState(t *testing.T) {
	writes := []string{
		seedMutation,
		`{"operations": [{"op": "set_node_props", "id": "basel", "properties": {"canton": "Basel-Stadt"}}]}`,
		`{"operations": [{"op": "create_node", "id": "bern", "label": "City", "properties": {"name": "Bern"}}]}`,
	}

	first := newConnectedMemoryStore(t)
	for _, w := range writes {
		_, err := first.WriteQuery(context.Background(), w)
		require.NoError(t, err)
	}

	// Replaying the recorded write sequence against a fresh backend must
	// reconstruct the exact same graph, down to the rendered form.
	second := newConnectedMemoryStore(t)
	for _, w := range writes {
		_, err := second.WriteQuery(context.Background(), w)
		require.NoError(t, err)
	}

	a, err := first.CurrentState(context.Background())
	require.NoError(t, err)
	b, err := second.CurrentState(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a.Render(), b.Render())
}

func TestIsRepairable(t *testing.T) {
	assert.True(t, IsRepairable(NewSyntaxError("bad", nil)))
	assert.True(t, IsRepairable(NewRuntimeError("bad", nil)))
	assert.False(t, IsRepairable(NewConnectionError("down", nil)))
	assert.False(t, IsRepairable(errors.New("plain")))
	assert.False(t, IsRepairable(nil))
}
