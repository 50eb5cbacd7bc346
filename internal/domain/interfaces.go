package domain

import (
	"context"
	"iter"
)

// Provider represents any LLM provider.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (*Completion, error)

	// Stream returns a lazy sequence of deltas. The backend request is opened
	// when the sequence is ranged over and released when ranging stops.
	Stream(ctx context.Context, messages []Message, opts CompletionOptions) iter.Seq2[Delta, error]

	// Embed returns the embedding of a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// IsHealthy probes the backend. Every call re-probes.
	IsHealthy(ctx context.Context) bool

	// ListModels returns the models the backend serves, or an empty slice.
	ListModels(ctx context.Context) []ModelInfo
}

// ProviderSelector resolves the process-wide default provider.
type ProviderSelector interface {
	// Default returns the lazily constructed default provider.
	Default(ctx context.Context) (Provider, error)
}

// SessionStore persists chat sessions keyed by user id and app id.
type SessionStore interface {
	// GetSession returns the user's session for appID, or nil when none exists.
	GetSession(ctx context.Context, userID, appID string) (*Session, error)

	// CreateSession stores a new session.
	CreateSession(ctx context.Context, userID string, session *Session) error

	// UpdateSession overwrites a stored session.
	UpdateSession(ctx context.Context, userID string, session *Session) error
}

// PromptContextProvider supplies identity and long-term memory text for a user.
type PromptContextProvider interface {
	// GetPromptContext returns the display name and memory summary of a user.
	GetPromptContext(ctx context.Context, userID string) (PromptContext, error)
}
