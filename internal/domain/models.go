package domain

import "time"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// CompletionOptions carries per-call overrides. Zero values fall back to provider defaults.
type CompletionOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Completion represents a unified, non-streaming LLM response.
type Completion struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason"`
	Usage        Usage     `json:"usage"`
}

// Delta is one incremental fragment of a streamed reply.
// FinishReason is empty on every delta except the terminal one.
type Delta struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Model        string    `json:"model"`
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
}

// Done reports whether the delta terminates the stream.
func (d Delta) Done() bool {
	return d.FinishReason != ""
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage whose total is the sum of its parts.
func NewUsage(promptTokens, completionTokens int) Usage {
	return Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// ModelInfo describes a model a backend can serve.
type ModelInfo struct {
	ID         string    `json:"id"`
	OwnedBy    string    `json:"owned_by,omitempty"`
	Family     string    `json:"family,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

// ProviderConfig is resolved once when a provider is constructed.
type ProviderConfig struct {
	Kind               string
	BaseURL            string
	APIKey             string
	DefaultModel       string
	EmbeddingModel     string
	EmbeddingDimension int
	Timeout            time.Duration
	MaxRetries         int
}

// Sender identifies who authored a session turn.
type Sender string

// Turn senders.
const (
	SenderHuman Sender = "human"
	SenderAI    Sender = "ai"
)

// Turn is one persisted message of a chat session.
type Turn struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	AppID     string    `json:"app_id,omitempty"`
}

// Role maps the turn sender onto a chat message role.
func (t Turn) Role() string {
	if t.Sender == SenderHuman {
		return RoleUser
	}
	return RoleAssistant
}

// Session is an ordered chat history owned by the session store.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	AppID     string    `json:"app_id,omitempty"`
	Messages  []Turn    `json:"messages"`
}

// PromptContext is the per-user identity and memory text injected into the system prompt.
type PromptContext struct {
	DisplayName   string `json:"display_name"`
	MemorySummary string `json:"memory_summary"`
}

// Health statuses.
const (
	StatusHealthy     = "healthy"
	StatusUnavailable = "unavailable"
)

// HealthReport is the result of a backend availability check.
type HealthReport struct {
	Status   string      `json:"status"`
	Provider string      `json:"provider"`
	Models   []ModelInfo `json:"models"`
}

// SendResult is the outcome of a buffered chat message.
type SendResult struct {
	Reply   *Completion `json:"reply"`
	Message Turn        `json:"message"`
}
