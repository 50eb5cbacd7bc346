// Package openai provides an adapter for the OpenAI API using the official SDK.
// It implements the domain.Provider interface and handles conversion between
// domain types and SDK types.
package openai

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const (
	providerName = "openai"

	defaultTemperature = 0.7

	// Embedding dimensions for different OpenAI models.
	embeddingDimensionStandard = 1536 // Ada v2 and Small v3
	embeddingDimensionLarge    = 3072 // Large v3
)

// Provider implements the domain.Provider interface for OpenAI.
type Provider struct {
	client         openai.Client
	defaultModel   string
	embeddingModel string
}

// NewProvider creates a new OpenAI provider.
func NewProvider(cfg domain.ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrProviderUnavailable)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(openai.EmbeddingModelTextEmbeddingAda002)
	}

	return &Provider{
		client:         openai.NewClient(opts...),
		defaultModel:   cfg.DefaultModel,
		embeddingModel: embeddingModel,
	}, nil
}

// ProviderConfig converts environment configuration into a provider configuration.
func ProviderConfig(cfg Config) domain.ProviderConfig {
	return domain.ProviderConfig{
		Kind:           providerName,
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		DefaultModel:   cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        time.Duration(cfg.Timeout) * time.Second,
		MaxRetries:     cfg.MaxRetries,
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
	params := p.toSDKParams(messages, opts)

	logger := observability.FromContext(observability.WithModel(ctx, string(params.Model)))
	logger.Debug("calling OpenAI API")

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, fmt.Errorf("%w: OpenAI API call failed: %w", domain.ErrBackendUnavailable, err)
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return ToCompletion(resp), nil
}

// Stream returns the reply as a lazy sequence of deltas.
func (p *Provider) Stream(
	ctx context.Context,
	messages []domain.Message,
	opts domain.CompletionOptions,
) iter.Seq2[domain.Delta, error] {
	params := p.toSDKParams(messages, opts)

	return func(yield func(domain.Delta, error) bool) {
		logger := observability.FromContext(observability.WithModel(ctx, string(params.Model)))
		logger.Debug("calling OpenAI streaming API")

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()
		defer logger.Debug("OpenAI stream completed")

		for stream.Next() {
			delta := ToDelta(stream.Current())
			if delta == nil {
				continue
			}

			if !yield(*delta, nil) {
				return
			}

			if delta.Done() {
				return
			}
		}

		if err := stream.Err(); err != nil {
			logger.Error("OpenAI stream failed", observability.Error(err))
			yield(domain.Delta{}, fmt.Errorf("%w: OpenAI stream error: %w", domain.ErrBackendUnavailable, err))
		}
	}
}

// Embed returns the embedding of a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds all texts in one request. On failure every item becomes a
// zero vector of the model's dimension.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	embeddings := make([][]float64, len(texts))
	if len(texts) == 0 {
		return embeddings, nil
	}

	//nolint:exhaustruct // OpenAI SDK struct has many optional fields
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		observability.FromContext(ctx).Error("failed to create embeddings, substituting zero vectors",
			observability.Error(err),
			observability.Int("count", len(texts)))
		resp = &openai.CreateEmbeddingResponse{}
	}

	for _, item := range resp.Data {
		if item.Index >= 0 && int(item.Index) < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	for i := range embeddings {
		if embeddings[i] == nil {
			embeddings[i] = make([]float64, p.Dimension())
		}
	}

	return embeddings, nil
}

// IsHealthy lists models as a cheap authenticated probe.
func (p *Provider) IsHealthy(ctx context.Context) bool {
	if _, err := p.client.Models.List(ctx); err != nil {
		observability.FromContext(ctx).Error("OpenAI health check failed", observability.Error(err))
		return false
	}
	return true
}

// ListModels returns the models visible to the configured key, or an empty slice.
func (p *Provider) ListModels(ctx context.Context) []domain.ModelInfo {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		observability.FromContext(ctx).Error("failed to list OpenAI models", observability.Error(err))
		return []domain.ModelInfo{}
	}

	models := make([]domain.ModelInfo, 0, len(page.Data))
	for _, model := range page.Data {
		models = append(models, domain.ModelInfo{
			ID:         model.ID,
			OwnedBy:    model.OwnedBy,
			ModifiedAt: time.Unix(model.Created, 0).UTC(),
		})
	}

	return models
}

// Dimension returns the vector dimension of the embedding model.
func (p *Provider) Dimension() int {
	switch p.embeddingModel {
	case string(openai.EmbeddingModelTextEmbeddingAda002),
		string(openai.EmbeddingModelTextEmbedding3Small):
		return embeddingDimensionStandard
	case string(openai.EmbeddingModelTextEmbedding3Large):
		return embeddingDimensionLarge
	default:
		return embeddingDimensionStandard
	}
}

// toSDKParams converts domain messages and options to SDK ChatCompletionNewParams.
func (p *Provider) toSDKParams(msgs []domain.Message, opts domain.CompletionOptions) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, len(msgs))
	for i, msg := range msgs {
		switch msg.Role {
		case domain.RoleUser:
			messages[i] = openai.UserMessage(msg.Content)
		case domain.RoleAssistant:
			messages[i] = openai.AssistantMessage(msg.Content)
		case domain.RoleSystem:
			messages[i] = openai.SystemMessage(msg.Content)
		default:
			// Fallback to user message if role is unknown
			messages[i] = openai.UserMessage(msg.Content)
		}
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}

	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	return params
}
