// Package echo provides an offline provider that echoes back the latest user message.
// It implements the domain.Provider interface without making external calls,
// providing deterministic replies for development and tests.
package echo

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo4"
	chunkDelay   = 10 * time.Millisecond
	finishReason = "stop"
)

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	defaultModel string
	chunkDelay   time.Duration
}

// NewProvider creates a new echo provider.
// No backend is required as this provider operates entirely in-memory.
func NewProvider(cfg domain.ProviderConfig) (*Provider, error) {
	model := cfg.DefaultModel
	if model == "" {
		model = modelName
	}

	return &Provider{
		defaultModel: model,
		chunkDelay:   chunkDelay,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// Complete returns the echoed reply.
func (p *Provider) Complete(
	ctx context.Context,
	messages []domain.Message,
	opts domain.CompletionOptions,
) (*domain.Completion, error) {
	model := p.model(opts)

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request")

	content := buildEchoContent(messages)
	promptTokens := countTokens(messages)
	completionTokens := len(strings.Fields(content))

	logger.Debug("echo completed",
		observability.Int("prompt_tokens", promptTokens),
		observability.Int("completion_tokens", completionTokens),
	)

	return &domain.Completion{
		ID:           "echo-" + uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Model:        model,
		Provider:     providerName,
		Role:         domain.RoleAssistant,
		Content:      content,
		FinishReason: finishReason,
		Usage:        domain.NewUsage(promptTokens, completionTokens),
	}, nil
}

// Stream emits the echoed reply word by word, followed by a terminal delta.
func (p *Provider) Stream(
	ctx context.Context,
	messages []domain.Message,
	opts domain.CompletionOptions,
) iter.Seq2[domain.Delta, error] {
	model := p.model(opts)

	return func(yield func(domain.Delta, error) bool) {
		observability.FromContext(ctx).Debug("streaming echo request")

		id := "echo-" + uuid.NewString()
		content := buildEchoContent(messages)

		// SplitAfter keeps separators, so fragments concatenate back to content.
		for _, word := range strings.SplitAfter(content, " ") {
			if word == "" {
				continue
			}

			select {
			case <-ctx.Done():
				yield(domain.Delta{}, fmt.Errorf("echo stream cancelled: %w", ctx.Err()))
				return
			case <-time.After(p.chunkDelay):
			}

			if !yield(domain.Delta{ID: id, CreatedAt: time.Now().UTC(), Model: model, Content: word}, nil) {
				return
			}
		}

		usage := domain.NewUsage(countTokens(messages), len(strings.Fields(content)))
		yield(domain.Delta{
			ID:           id,
			CreatedAt:    time.Now().UTC(),
			Model:        model,
			FinishReason: finishReason,
			Usage:        &usage,
		}, nil)
	}
}

// Embed is not supported by the echo backend.
func (p *Provider) Embed(_ context.Context, _ string) ([]float64, error) {
	return nil, fmt.Errorf("%w: echo provider has no embedding model", domain.ErrProviderUnavailable)
}

// EmbedBatch is not supported by the echo backend.
func (p *Provider) EmbedBatch(_ context.Context, _ []string) ([][]float64, error) {
	return nil, fmt.Errorf("%w: echo provider has no embedding model", domain.ErrProviderUnavailable)
}

// IsHealthy always reports true.
func (p *Provider) IsHealthy(_ context.Context) bool {
	return true
}

// ListModels returns the single echo model.
func (p *Provider) ListModels(_ context.Context) []domain.ModelInfo {
	return []domain.ModelInfo{{ID: p.defaultModel, OwnedBy: providerName}}
}

func (p *Provider) model(opts domain.CompletionOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return p.defaultModel
}

// buildEchoContent returns the content of the latest user message.
func buildEchoContent(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// countTokens performs simple word-based token counting.
func countTokens(messages []domain.Message) int {
	count := 0
	for _, msg := range messages {
		count += len(strings.Fields(msg.Content))
	}
	return count
}
