package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, `
controller:
  max_iterations: 5
  num_next_steps_decision: 3
  max_query_fixing_retry: 2
  retrieval_mode: direct
graph:
  backend: memory
llm:
  planning:
    type: openai
    default_model: gpt-4o
  execution:
    type: openai
    default_model: gpt-4o-mini
snapshots:
  dir: /tmp/snapshots
`)

	loader := NewLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Controller.MaxIterations)
	assert.Equal(t, 3, cfg.Controller.NumNextStepsDecision)
	assert.Equal(t, "direct", cfg.Controller.RetrievalMode)
	assert.Equal(t, "memory", cfg.Graph.Backend)
	assert.Equal(t, "gpt-4o", cfg.LLM.Planning.DefaultModel)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Execution.DefaultModel)
	assert.Equal(t, "/tmp/snapshots", cfg.Snapshots.Dir)

	// Unset fields keep defaults
	assert.Equal(t, 3, cfg.Controller.MaxLLMRetries)
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("KGOT_TEST_API_KEY", "sk-test-123")
	t.Setenv("KGOT_TEST_NEO4J_PASS", "secret")

	path := writeConfigFile(t, `
graph:
  backend: neo4j
  uri: bolt://localhost:7687
  username: neo4j
  password: ${KGOT_TEST_NEO4J_PASS}
llm:
  planning:
    api_key: ${KGOT_TEST_API_KEY}
  execution:
    api_key: ${KGOT_TEST_API_KEY}
`)

	loader := NewLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-123", cfg.LLM.Planning.APIKey)
	assert.Equal(t, "secret", cfg.Graph.Password)
}

func TestLoadLeavesUnsetEnvVarsIntact(t *testing.T) {
	path := writeConfigFile(t, `
llm:
  planning:
    api_key: ${KGOT_DEFINITELY_UNSET_VAR}
`)

	loader := NewLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${KGOT_DEFINITELY_UNSET_VAR}", cfg.LLM.Planning.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewLoader(NewValidator())

	_, err := loader.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfigNotFound, types.CodeOf(err))
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	loader := NewLoader(NewValidator())

	cfg, err := loader.LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = loader.LoadWithDefaults("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidateRejectsBadBudgets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero iterations", func(c *Config) { c.Controller.MaxIterations = 0 }},
		{"zero decision samples", func(c *Config) { c.Controller.NumNextStepsDecision = 0 }},
		{"negative query fixing", func(c *Config) { c.Controller.MaxQueryFixingRetry = -1 }},
		{"bad retrieval mode", func(c *Config) { c.Controller.RetrievalMode = "psychic" }},
		{"bad backend", func(c *Config) { c.Graph.Backend = "mongodb" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"neo4j without uri", func(c *Config) { c.Graph.Backend = "neo4j"; c.Graph.URI = "" }},
		{"sparql without endpoint", func(c *Config) { c.Graph.Backend = "sparql" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			require.Error(t, err)
			assert.Equal(t, types.ErrConfigValidationFailed, types.CodeOf(err))
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, NewValidator().Validate(DefaultConfig()))
}
