package config_test

import (
	"os"
	"testing"

	"github.com/davidbz/ember/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		// Clear environment
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)

		require.Equal(t, 8080, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 330, cfg.Server.WriteTimeout)
		require.Empty(t, cfg.LLM.Provider)

		require.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
		require.Equal(t, "llama3", cfg.Ollama.Model)
		require.Equal(t, "nomic-embed-text", cfg.Ollama.EmbeddingModel)
		require.Equal(t, 384, cfg.Ollama.EmbeddingDimension)
		require.Equal(t, 300, cfg.Ollama.Timeout)

		require.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
		require.Equal(t, "gpt-4", cfg.OpenAI.Model)
		require.Equal(t, 300, cfg.OpenAI.Timeout)
		require.Equal(t, 3, cfg.OpenAI.MaxRetries)
		require.Empty(t, cfg.OpenAI.APIKey)

		require.Equal(t, 10, cfg.Chat.HistoryWindow)
		require.InDelta(t, 0.7, cfg.Chat.Temperature, 1e-9)
		require.Equal(t, 500, cfg.Chat.MaxTokens)
		require.Empty(t, cfg.Chat.Model)
		require.Equal(t, "Omi", cfg.Chat.AssistantName)

		require.Equal(t, []string{"X-Trace-Id", "X-Request-Id"}, cfg.CORS.ExposedHeaders)

		require.False(t, cfg.Redis.Enabled())
		require.Equal(t, "ember", cfg.Redis.KeyPrefix)
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		// Set environment variables using t.Setenv for automatic cleanup
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("SERVER_WRITE_TIMEOUT", "600")
		t.Setenv("LLM_PROVIDER", "openai")
		t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
		t.Setenv("OLLAMA_EMBEDDING_DIMENSION", "768")
		t.Setenv("OPENAI_API_KEY", "sk-test-key")
		t.Setenv("OPENAI_MAX_RETRIES", "5")
		t.Setenv("CHAT_HISTORY_WINDOW", "4")
		t.Setenv("CHAT_TEMPERATURE", "0.2")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("REDIS_DB", "2")

		cfg := config.Load()

		require.NotNil(t, cfg)

		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, 600, cfg.Server.WriteTimeout)
		require.Equal(t, "openai", cfg.LLM.Provider)
		require.Equal(t, "http://gpu-box:11434", cfg.Ollama.Host)
		require.Equal(t, 768, cfg.Ollama.EmbeddingDimension)
		require.Equal(t, "sk-test-key", cfg.OpenAI.APIKey)
		require.Equal(t, 5, cfg.OpenAI.MaxRetries)
		require.Equal(t, 4, cfg.Chat.HistoryWindow)
		require.InDelta(t, 0.2, cfg.Chat.Temperature, 1e-9)
		require.True(t, cfg.Redis.Enabled())
		require.Equal(t, 2, cfg.Redis.DB)
	})

	t.Run("should fan sub-configs out for injection", func(t *testing.T) {
		os.Clearenv()
		cfg := config.Load()

		deps := config.ParseDependenciesConfig(cfg)

		require.Same(t, &cfg.Chat, deps.Chat)
		require.Same(t, &cfg.Ollama, deps.Ollama)
		require.Same(t, &cfg.Redis, deps.Redis)
	})
}
