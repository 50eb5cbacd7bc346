package domain

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/ember/internal/observability"
)

const (
	// FallbackReply replaces the reply when a buffered completion fails.
	FallbackReply = "I'm having trouble processing your request right now. Please check that the language model service is running."

	// StreamFallbackNotice is appended to a streamed reply that failed mid-flight.
	StreamFallbackNotice = "\n\nI'm having trouble streaming the response. Please check that the language model service is running."

	fallbackFinishReason = "error"
	defaultDisplayName   = "the user"
)

// ChatConfig contains conversation settings.
type ChatConfig struct {
	HistoryWindow int     `env:"CHAT_HISTORY_WINDOW" envDefault:"10"`
	Temperature   float64 `env:"CHAT_TEMPERATURE"    envDefault:"0.7"`
	MaxTokens     int     `env:"CHAT_MAX_TOKENS"     envDefault:"500"`
	Model         string  `env:"CHAT_MODEL"`
	AssistantName string  `env:"CHAT_ASSISTANT_NAME" envDefault:"Omi"`
}

// ChatService orchestrates a conversation turn: prompt assembly, dispatch to
// the default provider and persistence of both turns.
type ChatService struct {
	selector ProviderSelector
	sessions SessionStore
	profiles PromptContextProvider
	config   ChatConfig
}

// NewChatService creates a new chat service (DI constructor).
func NewChatService(
	selector ProviderSelector,
	sessions SessionStore,
	profiles PromptContextProvider,
	config *ChatConfig,
) *ChatService {
	return &ChatService{
		selector: selector,
		sessions: sessions,
		profiles: profiles,
		config:   *config,
	}
}

// SendMessage produces a buffered reply. A provider failure degrades to
// FallbackReply; only dispatch-time unavailability is returned as an error.
func (c *ChatService) SendMessage(ctx context.Context, userID, text, appID string) (*SendResult, error) {
	if err := validate(userID, text); err != nil {
		return nil, err
	}

	provider, err := c.dispatch(ctx)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithProvider(ctx, provider.Name())
	logger := observability.FromContext(ctx)

	session, err := c.loadSession(ctx, userID, appID)
	if err != nil {
		return nil, err
	}

	messages := c.buildPrompt(ctx, userID, session.Messages, text)

	reply, err := provider.Complete(ctx, messages, c.options())
	if err != nil {
		logger.Error("completion failed, replying with fallback", observability.Error(err))
		reply = c.fallbackCompletion(provider.Name())
	}

	userTurn := newTurn(SenderHuman, text, "")
	aiTurn := newTurn(SenderAI, reply.Content, appID)
	session.Messages = append(session.Messages, userTurn, aiTurn)

	if err := c.sessions.UpdateSession(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	logger.Info("message answered",
		observability.Int("total_tokens", reply.Usage.TotalTokens),
		observability.String("finish_reason", reply.FinishReason))

	return &SendResult{Reply: reply, Message: aiTurn}, nil
}

// StreamMessage persists the user turn and returns the reply as a sequence of
// text fragments. The sequence can be ranged over once. When it ends, the
// accumulated text is persisted as the assistant turn; after a backend failure
// or early abandonment StreamFallbackNotice is appended to it.
func (c *ChatService) StreamMessage(ctx context.Context, userID, text, appID string) (iter.Seq[string], error) {
	if err := validate(userID, text); err != nil {
		return nil, err
	}

	provider, err := c.dispatch(ctx)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithProvider(ctx, provider.Name())

	session, err := c.loadSession(ctx, userID, appID)
	if err != nil {
		return nil, err
	}

	messages := c.buildPrompt(ctx, userID, slices.Clone(session.Messages), text)

	session.Messages = append(session.Messages, newTurn(SenderHuman, text, ""))
	if err := c.sessions.UpdateSession(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to persist user turn: %w", err)
	}

	var consumed atomic.Bool

	return func(yield func(string) bool) {
		if consumed.Swap(true) {
			return
		}

		logger := observability.FromContext(ctx)
		logger.Info("stream started")

		var reply strings.Builder
		failed, abandoned := false, false

		for delta, streamErr := range provider.Stream(ctx, messages, c.options()) {
			if streamErr != nil {
				logger.Error("stream failed mid-flight", observability.Error(streamErr))
				failed = true
				break
			}

			if delta.Content == "" {
				continue
			}

			reply.WriteString(delta.Content)
			if !yield(delta.Content) {
				abandoned = true
				break
			}
		}

		if failed || abandoned {
			reply.WriteString(StreamFallbackNotice)
			if !abandoned {
				yield(StreamFallbackNotice)
			}
		}

		// The caller may have gone away; the assistant turn is persisted regardless.
		persistCtx := context.WithoutCancel(ctx)
		session.Messages = append(session.Messages, newTurn(SenderAI, reply.String(), appID))
		if err := c.sessions.UpdateSession(persistCtx, userID, session); err != nil {
			logger.Error("failed to persist assistant turn", observability.Error(err))
			return
		}

		logger.Info("stream completed",
			observability.Bool("failed", failed),
			observability.Bool("abandoned", abandoned),
			observability.Int("reply_length", reply.Len()))
	}, nil
}

// CheckHealth reports whether the default provider's backend is reachable.
func (c *ChatService) CheckHealth(ctx context.Context) *HealthReport {
	logger := observability.FromContext(ctx)

	provider, err := c.selector.Default(ctx)
	if err != nil {
		logger.Error("no default provider", observability.Error(err))
		return &HealthReport{Status: StatusUnavailable, Models: []ModelInfo{}}
	}

	if !provider.IsHealthy(ctx) {
		return &HealthReport{Status: StatusUnavailable, Provider: provider.Name(), Models: []ModelInfo{}}
	}

	return &HealthReport{
		Status:   StatusHealthy,
		Provider: provider.Name(),
		Models:   provider.ListModels(ctx),
	}
}

// dispatch resolves the default provider and rejects the request when its backend is down.
func (c *ChatService) dispatch(ctx context.Context) (Provider, error) {
	provider, err := c.selector.Default(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider selection failed: %w", err)
	}

	if !provider.IsHealthy(ctx) {
		return nil, fmt.Errorf("%w: %s failed its health check", ErrBackendUnavailable, provider.Name())
	}

	return provider, nil
}

// loadSession returns the user's session for appID, creating it when absent.
func (c *ChatService) loadSession(ctx context.Context, userID, appID string) (*Session, error) {
	session, err := c.sessions.GetSession(ctx, userID, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session != nil {
		return session, nil
	}

	session = &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		AppID:     appID,
		Messages:  []Turn{},
	}

	if err := c.sessions.CreateSession(ctx, userID, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	observability.FromContext(ctx).Info("session created", observability.String("session_id", session.ID))

	return session, nil
}

func (c *ChatService) buildPrompt(ctx context.Context, userID string, history []Turn, text string) []Message {
	promptCtx, err := c.profiles.GetPromptContext(ctx, userID)
	if err != nil {
		observability.FromContext(ctx).Warn("prompt context unavailable, continuing without memories",
			observability.Error(err))
		promptCtx = PromptContext{}
	}

	if promptCtx.DisplayName == "" {
		promptCtx.DisplayName = defaultDisplayName
	}

	return BuildPrompt(c.config.AssistantName, promptCtx, history, c.config.HistoryWindow, text)
}

func (c *ChatService) options() CompletionOptions {
	temperature := c.config.Temperature
	return CompletionOptions{
		Model:       c.config.Model,
		Temperature: &temperature,
		MaxTokens:   c.config.MaxTokens,
	}
}

func (c *ChatService) fallbackCompletion(providerName string) *Completion {
	return &Completion{
		ID:           "fallback-" + uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Model:        c.config.Model,
		Provider:     providerName,
		Role:         RoleAssistant,
		Content:      FallbackReply,
		FinishReason: fallbackFinishReason,
		Usage:        Usage{},
	}
}

func newTurn(sender Sender, text, appID string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Sender:    sender,
		Text:      text,
		AppID:     appID,
	}
}

func validate(userID, text string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id cannot be empty", ErrInvalidMessage)
	}

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message text cannot be empty", ErrInvalidMessage)
	}

	return nil
}
