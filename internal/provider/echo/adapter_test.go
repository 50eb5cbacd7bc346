package echo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/provider/echo"
)

func newProvider(t *testing.T) *echo.Provider {
	t.Helper()
	provider, err := echo.NewProvider(domain.ProviderConfig{})
	require.NoError(t, err)
	return provider
}

func TestNewProvider(t *testing.T) {
	provider := newProvider(t)

	require.NotNil(t, provider)
	require.Equal(t, "echo", provider.Name())
	require.Equal(t, []domain.ModelInfo{{ID: "echo4", OwnedBy: "echo"}}, provider.ListModels(context.Background()))
}

func TestComplete_Success(t *testing.T) {
	provider := newProvider(t)
	ctx := context.Background()

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "You are helpful"},
		{Role: domain.RoleUser, Content: "Hello world"},
	}

	resp, err := provider.Complete(ctx, messages, domain.CompletionOptions{})

	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "echo4", resp.Model)
	require.Equal(t, "echo", resp.Provider)
	require.Equal(t, "Hello world", resp.Content)
	require.Equal(t, 5, resp.Usage.PromptTokens)
	require.Equal(t, 2, resp.Usage.CompletionTokens)
	require.Equal(t, 7, resp.Usage.TotalTokens)
	require.NotEmpty(t, resp.ID)
}

func TestComplete_EmptyMessages(t *testing.T) {
	provider := newProvider(t)

	resp, err := provider.Complete(context.Background(), nil, domain.CompletionOptions{Model: "custom"})

	require.NoError(t, err)
	require.Empty(t, resp.Content)
	require.Equal(t, "custom", resp.Model)
	require.Equal(t, domain.Usage{}, resp.Usage)
}

func TestStream_ConcatenatesToCompletion(t *testing.T) {
	provider := newProvider(t)
	ctx := context.Background()
	messages := []domain.Message{{Role: domain.RoleUser, Content: "Hello  big world"}}

	var builder strings.Builder
	var last domain.Delta
	count := 0
	for delta, err := range provider.Stream(ctx, messages, domain.CompletionOptions{}) {
		require.NoError(t, err)
		builder.WriteString(delta.Content)
		last = delta
		count++
	}

	completion, err := provider.Complete(ctx, messages, domain.CompletionOptions{})
	require.NoError(t, err)

	require.Equal(t, completion.Content, builder.String())
	require.True(t, last.Done())
	require.Empty(t, last.Content)
	require.Equal(t, completion.Usage, *last.Usage)
	require.Greater(t, count, 1)
}

func TestStream_ContextCancellation(t *testing.T) {
	provider := newProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var streamErr error
	for _, err := range provider.Stream(ctx, []domain.Message{{Role: domain.RoleUser, Content: "one two"}}, domain.CompletionOptions{}) {
		if err != nil {
			streamErr = err
		}
	}

	require.ErrorIs(t, streamErr, context.Canceled)
}

func TestStream_EarlyBreak(t *testing.T) {
	provider := newProvider(t)

	count := 0
	for _, err := range provider.Stream(context.Background(),
		[]domain.Message{{Role: domain.RoleUser, Content: "one two three"}}, domain.CompletionOptions{}) {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}

	require.Equal(t, 2, count)
}

func TestEmbed_Unsupported(t *testing.T) {
	provider := newProvider(t)

	vector, err := provider.Embed(context.Background(), "a")
	require.Nil(t, vector)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)

	vectors, err := provider.EmbedBatch(context.Background(), []string{"a"})
	require.Nil(t, vectors)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
