package graph

import (
	"context"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// QueryLanguage identifies the dialect a backend expects, so prompts can
// ask the model for the right kind of query.
type QueryLanguage string

const (
	LanguageCypher   QueryLanguage = "cypher"
	LanguageMutation QueryLanguage = "mutation-json"
	LanguageCEL      QueryLanguage = "cel"
	LanguageSPARQL   QueryLanguage = "sparql"
)

// Store is the knowledge graph adapter. Implementations must be safe for
// concurrent use.
type Store interface {
	// Connect establishes a connection to the backend. Must be called
	// before any query.
	Connect(ctx context.Context) error

	// Close releases all resources.
	Close(ctx context.Context) error

	// Health returns the current health of the backend connection.
	Health(ctx context.Context) types.HealthStatus

	// WriteQuery applies a mutation expressed in the backend's write
	// dialect. Failed writes leave the graph unchanged.
	WriteQuery(ctx context.Context, query string) (WriteResult, error)

	// GetQuery evaluates a read query and returns its result rows.
	GetQuery(ctx context.Context, query string) (QueryResult, error)

	// CurrentState exports the full graph as a backend-independent State.
	CurrentState(ctx context.Context) (State, error)

	// Reset removes all nodes and edges.
	Reset(ctx context.Context) error

	// WriteLanguage names the dialect WriteQuery expects.
	WriteLanguage() QueryLanguage

	// ReadLanguage names the dialect GetQuery expects.
	ReadLanguage() QueryLanguage
}

// WriteResult summarizes the effect of a write query.
type WriteResult struct {
	NodesCreated  int
	EdgesCreated  int
	PropertiesSet int
	ExecutionTime time.Duration
}

// Changed reports whether the write touched the graph at all.
func (r WriteResult) Changed() bool {
	return r.NodesCreated > 0 || r.EdgesCreated > 0 || r.PropertiesSet > 0
}

// QueryResult holds the rows returned by a read query.
type QueryResult struct {
	// Records contains the result rows as maps of column name to value.
	Records []map[string]any

	// Columns contains the column names in the result set.
	Columns []string

	ExecutionTime time.Duration
}

// IsEmpty reports whether the query returned no rows.
func (r QueryResult) IsEmpty() bool {
	return len(r.Records) == 0
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "neo4j", "memory", "sparql".
	Backend string `json:"backend" mapstructure:"backend" validate:"required,oneof=neo4j memory sparql"`

	// URI is the connection URI for neo4j (bolt:// or neo4j:// schemes).
	URI      string `json:"uri" mapstructure:"uri"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`

	// ReadEndpoint and WriteEndpoint configure the sparql backend.
	ReadEndpoint  string `json:"read_endpoint" mapstructure:"read_endpoint"`
	WriteEndpoint string `json:"write_endpoint" mapstructure:"write_endpoint"`

	// ConnectionTimeout bounds connection establishment.
	ConnectionTimeout time.Duration `json:"connection_timeout" mapstructure:"connection_timeout"`
}

// New constructs the configured backend. The store still needs Connect
// before use.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "neo4j":
		return NewNeo4jStore(cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	case "sparql":
		return NewSPARQLStore(cfg)
	default:
		return nil, NewConfigError("unknown graph backend: " + cfg.Backend)
	}
}
