package ollama

// Config contains Ollama provider configuration.
//   - Host: base URL of the Ollama daemon
//   - Model: chat model used when a request names none
//   - EmbeddingModel / EmbeddingDimension: embedding model and the size of its
//     zero-vector fallback
//   - Timeout: ceiling for every backend call (in seconds)
type Config struct {
	Host               string `env:"OLLAMA_HOST"                envDefault:"http://localhost:11434"`
	Model              string `env:"OLLAMA_MODEL"               envDefault:"llama3"`
	EmbeddingModel     string `env:"OLLAMA_EMBEDDING_MODEL"     envDefault:"nomic-embed-text"`
	EmbeddingDimension int    `env:"OLLAMA_EMBEDDING_DIMENSION" envDefault:"384"`
	Timeout            int    `env:"OLLAMA_TIMEOUT"             envDefault:"300"`
}
