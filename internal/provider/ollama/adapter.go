// Package ollama provides a provider for a local Ollama daemon.
// It speaks the daemon's native /api endpoints (NDJSON streaming) and
// normalizes responses into the canonical domain shapes.
package ollama

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const (
	providerName = "ollama"

	defaultTemperature = 0.7
	defaultTimeout     = 300 * time.Second
)

// Provider implements the domain.Provider interface for Ollama.
type Provider struct {
	client             *Client
	defaultModel       string
	embeddingModel     string
	embeddingDimension int
}

// NewProvider creates a new Ollama provider.
func NewProvider(cfg domain.ProviderConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("ollama base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Provider{
		client:             NewClient(cfg.BaseURL, timeout),
		defaultModel:       cfg.DefaultModel,
		embeddingModel:     cfg.EmbeddingModel,
		embeddingDimension: cfg.EmbeddingDimension,
	}, nil
}

// ProviderConfig converts environment configuration into a provider configuration.
func ProviderConfig(cfg Config) domain.ProviderConfig {
	return domain.ProviderConfig{
		Kind:               providerName,
		BaseURL:            cfg.Host,
		DefaultModel:       cfg.Model,
		EmbeddingModel:     cfg.EmbeddingModel,
		EmbeddingDimension: cfg.EmbeddingDimension,
		Timeout:            time.Duration(cfg.Timeout) * time.Second,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// Complete sends a completion request and returns the full response.
func (p *Provider) Complete(
	ctx context.Context,
	messages []domain.Message,
	opts domain.CompletionOptions,
) (*domain.Completion, error) {
	req := p.toChatRequest(messages, opts)

	logger := observability.FromContext(observability.WithModel(ctx, req.Model))
	logger.Debug("calling ollama chat API")

	native, err := p.client.Chat(ctx, req)
	if err != nil {
		logger.Error("ollama chat API call failed", observability.Error(err))
		return nil, err
	}

	completion := ToCompletion(native, req.Model)

	logger.Debug("ollama chat API call succeeded",
		observability.Int("prompt_tokens", completion.Usage.PromptTokens),
		observability.Int("completion_tokens", completion.Usage.CompletionTokens),
	)

	return completion, nil
}

// Stream returns the reply as a lazy sequence of deltas.
func (p *Provider) Stream(
	ctx context.Context,
	messages []domain.Message,
	opts domain.CompletionOptions,
) iter.Seq2[domain.Delta, error] {
	req := p.toChatRequest(messages, opts)

	return func(yield func(domain.Delta, error) bool) {
		logger := observability.FromContext(observability.WithModel(ctx, req.Model))
		logger.Debug("calling ollama streaming chat API")
		defer logger.Debug("ollama stream completed")

		for frame, err := range p.client.ChatStream(ctx, req) {
			if err != nil {
				logger.Error("ollama stream failed", observability.Error(err))
				yield(domain.Delta{}, err)
				return
			}

			delta := ToDelta(frame, req.Model)
			if delta == nil {
				continue
			}

			if !yield(*delta, nil) {
				return
			}
		}
	}
}

// Embed returns the embedding of a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	embeddings := p.client.Embed(ctx, p.embeddingModel, []string{text}, p.embeddingDimension)
	return embeddings[0], nil
}

// EmbedBatch returns one embedding per text; failed texts yield zero vectors.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return p.client.Embed(ctx, p.embeddingModel, texts, p.embeddingDimension), nil
}

// IsHealthy reports whether the daemon is reachable.
func (p *Provider) IsHealthy(ctx context.Context) bool {
	return p.client.HealthCheck(ctx)
}

// ListModels returns the models installed in the daemon.
func (p *Provider) ListModels(ctx context.Context) []domain.ModelInfo {
	return p.client.ListModels(ctx)
}

// toChatRequest converts domain messages and options into the native request, applying defaults.
func (p *Provider) toChatRequest(messages []domain.Message, opts domain.CompletionOptions) chatRequest {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	native := make([]chatMessage, len(messages))
	for i, msg := range messages {
		native[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	return chatRequest{
		Model:       model,
		Messages:    native,
		Temperature: temperature,
		Options: &chatOptions{
			Temperature: temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
}
