package openai

// Config contains OpenAI provider configuration.
// All fields map to OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey()
//   - BaseURL: Maps to option.WithBaseURL()
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries()
//
// Model and EmbeddingModel are used when a request names no model.
type Config struct {
	APIKey         string `env:"OPENAI_API_KEY"`
	BaseURL        string `env:"OPENAI_BASE_URL"        envDefault:"https://api.openai.com/v1"`
	Model          string `env:"OPENAI_MODEL"           envDefault:"gpt-4"`
	EmbeddingModel string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-ada-002"`
	Timeout        int    `env:"OPENAI_TIMEOUT"         envDefault:"300"`
	MaxRetries     int    `env:"OPENAI_MAX_RETRIES"     envDefault:"3"`
}
