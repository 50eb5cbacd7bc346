package domain

import "fmt"

const systemPromptTemplate = `You are '%s', a friendly and helpful AI assistant.
You are privacy-focused: the user's conversation stays within their own deployment.
You know the following about %s: %s

Be helpful, friendly, and concise in your responses.`

// BuildPrompt assembles the message sequence for one request: a single system
// message, then at most window prior turns oldest-first, then the new user turn.
func BuildPrompt(assistantName string, promptCtx PromptContext, history []Turn, window int, text string) []Message {
	if window < 0 {
		window = 0
	}

	start := max(len(history)-window, 0)
	recent := history[start:]

	messages := make([]Message, 0, len(recent)+2)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, assistantName, promptCtx.DisplayName, promptCtx.MemorySummary),
	})

	for _, turn := range recent {
		messages = append(messages, Message{Role: turn.Role(), Content: turn.Text})
	}

	return append(messages, Message{Role: RoleUser, Content: text})
}
