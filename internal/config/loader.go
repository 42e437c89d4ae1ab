package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a new Loader instance.
func NewLoader(validator Validator) Loader {
	return &viperLoader{validator: validator}
}

// Load reads a YAML config file, interpolates ${ENV_VAR} references,
// and validates the result.
func (l *viperLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, types.NewError(types.ErrConfigNotFound, "config file not found: "+path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.ErrConfigLoadFailed, "failed to read config file", err)
	}

	// Interpolate env vars across the raw settings, then decode the
	// interpolated tree in one pass.
	raw := interpolateEnvVars(v.AllSettings())
	interpolated := viper.New()
	if settings, ok := raw.(map[string]any); ok {
		if err := interpolated.MergeConfigMap(settings); err != nil {
			return nil, types.WrapError(types.ErrConfigParseFailed, "failed to merge interpolated settings", err)
		}
	}

	cfg := DefaultConfig()
	if err := interpolated.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.ErrConfigParseFailed, "failed to unmarshal config", err)
	}

	if err := l.validator.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads the file when it exists and falls back to
// defaults otherwise.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return l.Load(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateEnvVars recursively replaces ${VAR_NAME} references with
// environment variable values. Unset variables are left as-is.
func interpolateEnvVars(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
