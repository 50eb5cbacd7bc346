package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/provider/ollama"
	"github.com/davidbz/ember/internal/provider/openai"
	"github.com/davidbz/ember/internal/store/redis"
)

// Config represents the service configuration.
type Config struct {
	Server ServerConfig
	CORS   CORSConfig
	LLM    LLMConfig
	Ollama ollama.Config
	OpenAI openai.Config
	Chat   domain.ChatConfig
	Redis  redis.Config
}

// ServerConfig contains HTTP server settings. WriteTimeout covers a whole
// streamed reply, so it sits above the backend timeout.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"330"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization,X-User-Id,X-Request-Id"`
	ExposedHeaders   []string `env:"CORS_EXPOSED_HEADERS"   envSeparator:"," envDefault:"X-Trace-Id,X-Request-Id"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// LLMConfig selects the provider kind used as the process-wide default.
// Empty means the built-in default kind.
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Server *ServerConfig
	CORS   *CORSConfig
	LLM    *LLMConfig
	Ollama *ollama.Config
	OpenAI *openai.Config
	Chat   *domain.ChatConfig
	Redis  *redis.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:    dig.Out{},
		Server: &cfg.Server,
		CORS:   &cfg.CORS,
		LLM:    &cfg.LLM,
		Ollama: &cfg.Ollama,
		OpenAI: &cfg.OpenAI,
		Chat:   &cfg.Chat,
		Redis:  &cfg.Redis,
	}
}
