package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{Sources: []Source{{Name: "a", URL: "https://example.com/a.xml"}}}
	setDefaults(cfg)
	return cfg
}

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, VerifyAgainstEmbeddedSchema(validConfig()))
	})

	t.Run("missing listen", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Listen = ""
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.listen is required")
	})

	t.Run("missing timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Timeout = 0
		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.timeout is required")
	})
}

func TestRootProperties(t *testing.T) {
	t.Run("with ref", func(t *testing.T) {
		schema := map[string]any{
			"$ref":  "#/$defs/Config",
			"$defs": map[string]any{"Config": map[string]any{"properties": map[string]any{"server": map[string]any{}}}},
		}
		props, err := rootProperties(schema)
		require.NoError(t, err)
		assert.Contains(t, props, "server")
	})

	t.Run("broken ref", func(t *testing.T) {
		_, err := rootProperties(map[string]any{"$ref": "#/$defs/Missing"})
		require.Error(t, err)
	})

	t.Run("inline properties", func(t *testing.T) {
		props, err := rootProperties(map[string]any{"properties": map[string]any{"a": 1}})
		require.NoError(t, err)
		assert.Len(t, props, 1)
	})
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)
}
