package ollama_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/provider/ollama"
)

const (
	streamFixture = `{"model":"llama3","created_at":"2024-05-01T10:00:00Z","message":{"role":"assistant","content":"Hel"},"done":false}
{"model":"llama3","created_at":"2024-05-01T10:00:01Z","message":{"role":"assistant","content":"lo"},"done":false}
{"model":"llama3","created_at":"2024-05-01T10:00:02Z","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":2}
`
	completeFixture = `{"model":"llama3","created_at":"2024-05-01T10:00:02Z","message":{"role":"assistant","content":"Hello"},"done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":2}`
)

func TestToCompletion(t *testing.T) {
	t.Run("should extract content and usage", func(t *testing.T) {
		completion := ollama.ToCompletion(gjson.Parse(completeFixture), "llama3")

		require.Equal(t, "chatcmpl-2024-05-01T10:00:02Z", completion.ID)
		require.Equal(t, "llama3", completion.Model)
		require.Equal(t, "ollama", completion.Provider)
		require.Equal(t, domain.RoleAssistant, completion.Role)
		require.Equal(t, "Hello", completion.Content)
		require.Equal(t, "stop", completion.FinishReason)
		require.Equal(t, domain.Usage{PromptTokens: 12, CompletionTokens: 2, TotalTokens: 14}, completion.Usage)
		require.Equal(t, 2024, completion.CreatedAt.Year())
	})

	t.Run("should default missing fields", func(t *testing.T) {
		completion := ollama.ToCompletion(gjson.Parse(`{}`), "llama3")

		require.Equal(t, domain.RoleAssistant, completion.Role)
		require.Empty(t, completion.Content)
		require.Equal(t, "stop", completion.FinishReason)
		require.Equal(t, domain.Usage{}, completion.Usage)
		require.False(t, completion.CreatedAt.IsZero())
	})
}

func TestToDelta(t *testing.T) {
	tests := []struct {
		name         string
		frame        string
		wantNil      bool
		wantContent  string
		wantFinished bool
	}{
		{
			name:        "content frame",
			frame:       `{"message":{"content":"Hel"},"done":false}`,
			wantContent: "Hel",
		},
		{
			name:    "empty frame without done is skipped",
			frame:   `{"message":{"content":""},"done":false}`,
			wantNil: true,
		},
		{
			name:    "frame without message is skipped",
			frame:   `{"status":"loading"}`,
			wantNil: true,
		},
		{
			name:         "done frame carries finish reason",
			frame:        `{"message":{"content":""},"done":true,"eval_count":3,"prompt_eval_count":4}`,
			wantFinished: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := ollama.ToDelta(gjson.Parse(tt.frame), "llama3")
			if tt.wantNil {
				require.Nil(t, delta)
				return
			}

			require.NotNil(t, delta)
			require.Equal(t, tt.wantContent, delta.Content)
			require.Equal(t, tt.wantFinished, delta.Done())
			if tt.wantFinished {
				require.Equal(t, "stop", delta.FinishReason)
				require.NotNil(t, delta.Usage)
				require.Equal(t, 7, delta.Usage.TotalTokens)
			} else {
				require.Nil(t, delta.Usage)
			}
		})
	}
}

func TestNormalizer_StreamMatchesCompletion(t *testing.T) {
	var builder strings.Builder
	var last *domain.Delta

	for _, line := range strings.Split(strings.TrimSpace(streamFixture), "\n") {
		delta := ollama.ToDelta(gjson.Parse(line), "llama3")
		if delta == nil {
			continue
		}
		builder.WriteString(delta.Content)
		last = delta
	}

	completion := ollama.ToCompletion(gjson.Parse(completeFixture), "llama3")

	require.Equal(t, completion.Content, builder.String())
	require.NotNil(t, last)
	require.True(t, last.Done())
	require.Equal(t, completion.Usage, *last.Usage)
}
