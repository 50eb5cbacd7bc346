package openai

import (
	"time"

	"github.com/openai/openai-go"

	"github.com/davidbz/ember/internal/domain"
)

// ToCompletion converts an SDK chat completion into a canonical completion.
func ToCompletion(resp *openai.ChatCompletion) *domain.Completion {
	completion := &domain.Completion{
		ID:        resp.ID,
		CreatedAt: unixTime(resp.Created),
		Model:     resp.Model,
		Provider:  providerName,
		Role:      domain.RoleAssistant,
		Usage: domain.NewUsage(
			int(resp.Usage.PromptTokens),
			int(resp.Usage.CompletionTokens),
		),
	}

	if len(resp.Choices) > 0 {
		completion.Content = resp.Choices[0].Message.Content
		completion.FinishReason = resp.Choices[0].FinishReason
	}

	return completion
}

// ToDelta converts one SDK stream chunk into a canonical delta.
// It returns nil for chunks that carry neither text nor a finish reason.
func ToDelta(chunk openai.ChatCompletionChunk) *domain.Delta {
	if len(chunk.Choices) == 0 {
		return nil
	}

	choice := chunk.Choices[0]
	if choice.Delta.Content == "" && choice.FinishReason == "" {
		return nil
	}

	delta := &domain.Delta{
		ID:           chunk.ID,
		CreatedAt:    unixTime(chunk.Created),
		Model:        chunk.Model,
		Content:      choice.Delta.Content,
		FinishReason: choice.FinishReason,
	}

	if choice.FinishReason != "" && chunk.Usage.TotalTokens > 0 {
		usage := domain.NewUsage(int(chunk.Usage.PromptTokens), int(chunk.Usage.CompletionTokens))
		delta.Usage = &usage
	}

	return delta
}

func unixTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Now().UTC()
	}
	return time.Unix(seconds, 0).UTC()
}
