package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	config, err := Load("", missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "nodeflow.yaml", `
log:
  level: debug
  format: json
server:
  addr: ":9090"
  shutdown_timeout: 3s
redis:
  addr: localhost:6379
  db: 2
runner:
  max_concurrency: 4
  run_timeout: 1m
`)

	config, err := Load(path, missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, ":9090", config.Server.Addr)
	assert.Equal(t, 3*time.Second, config.Server.ShutdownTimeout)
	assert.Equal(t, "localhost:6379", config.Redis.Addr)
	assert.Equal(t, 2, config.Redis.DB)
	assert.Equal(t, 4, config.Runner.MaxConcurrency)
	assert.Equal(t, time.Minute, config.Runner.RunTimeout)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model, "unset fields keep defaults")
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "nodeflow.json", `{"llm": {"model": "local", "endpoint": "http://localhost:11434/v1/chat/completions"}, "search": {"endpoint": "http://search"}}`)

	config, err := Load(path, missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "local", config.LLM.Model)
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", config.LLM.Endpoint)
	assert.Equal(t, "http://search", config.Search.Endpoint)
}

func TestLoad_EmbeddingsSettings(t *testing.T) {
	path := writeFile(t, "nodeflow.yaml", "llm:\n  embeddings_model: nomic-embed-text\n")
	t.Setenv("NODEFLOW_LLM_EMBEDDINGS_ENDPOINT", "http://localhost:8081/v1/embeddings")

	config, err := Load(path, missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", config.LLM.EmbeddingsModel)
	assert.Equal(t, "http://localhost:8081/v1/embeddings", config.LLM.EmbeddingsEndpoint)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown key":   writeFile(t, "a.yaml", "logs:\n  level: debug\n"),
		"bad duration":  writeFile(t, "b.yaml", "server:\n  shutdown_timeout: soon\n"),
		"bad extension": writeFile(t, "c.toml", "x = 1"),
		"missing file":  filepath.Join(t.TempDir(), "none.yaml"),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(path, missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}

// TestLoad_EnvironmentWins verifies the layering order file < .env < process env.
func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeFile(t, "nodeflow.yaml", "llm:\n  model: from-file\nredis:\n  addr: file:6379\n")
	envFile := writeFile(t, "test.env", "NODEFLOW_LLM_MODEL=from-dotenv\nNODEFLOW_REDIS_DB=5\n")
	t.Setenv("NODEFLOW_LLM_MODEL", "")
	os.Unsetenv("NODEFLOW_LLM_MODEL")
	t.Setenv("NODEFLOW_REDIS_DB", "")
	os.Unsetenv("NODEFLOW_REDIS_DB")
	t.Setenv("NODEFLOW_REDIS_ADDR", "env:6379")
	t.Setenv("NODEFLOW_RUN_TIMEOUT", "45s")

	config, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", config.LLM.Model)
	assert.Equal(t, 5, config.Redis.DB)
	assert.Equal(t, "env:6379", config.Redis.Addr)
	assert.Equal(t, 45*time.Second, config.Runner.RunTimeout)
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	t.Setenv("NODEFLOW_LLM_API_KEY", "")
	os.Unsetenv("NODEFLOW_LLM_API_KEY")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	config, err := Load("", missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", config.LLM.APIKey)
}

func TestLoad_InvalidEnvNumber(t *testing.T) {
	t.Setenv("NODEFLOW_MAX_CONCURRENCY", "many")

	_, err := Load("", missingEnvFile(t))
	assert.ErrorContains(t, err, "NODEFLOW_MAX_CONCURRENCY")
}
