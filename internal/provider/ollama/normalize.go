package ollama

import (
	"time"

	"github.com/tidwall/gjson"

	"github.com/davidbz/ember/internal/domain"
)

const defaultFinishReason = "stop"

// ToCompletion converts a native /api/chat response into a canonical completion.
// Missing fields default to empty strings and zero counters.
func ToCompletion(native gjson.Result, model string) *domain.Completion {
	role := native.Get("message.role").String()
	if role == "" {
		role = domain.RoleAssistant
	}

	return &domain.Completion{
		ID:           responseID(native),
		CreatedAt:    createdAt(native),
		Model:        model,
		Provider:     providerName,
		Role:         role,
		Content:      native.Get("message.content").String(),
		FinishReason: finishReason(native),
		Usage:        usage(native),
	}
}

// ToDelta converts one native stream frame into a canonical delta.
// It returns nil for frames that carry neither text nor the done signal.
func ToDelta(native gjson.Result, model string) *domain.Delta {
	content := native.Get("message.content").String()
	done := native.Get("done").Bool()

	if content == "" && !done {
		return nil
	}

	delta := &domain.Delta{
		ID:        responseID(native),
		CreatedAt: createdAt(native),
		Model:     model,
		Content:   content,
	}

	if done {
		delta.FinishReason = finishReason(native)
		frameUsage := usage(native)
		delta.Usage = &frameUsage
	}

	return delta
}

func responseID(native gjson.Result) string {
	return "chatcmpl-" + native.Get("created_at").String()
}

func createdAt(native gjson.Result) time.Time {
	if ts := native.Get("created_at").Time(); !ts.IsZero() {
		return ts
	}
	return time.Now().UTC()
}

func finishReason(native gjson.Result) string {
	if reason := native.Get("done_reason").String(); reason != "" {
		return reason
	}
	return defaultFinishReason
}

func usage(native gjson.Result) domain.Usage {
	return domain.NewUsage(
		int(native.Get("prompt_eval_count").Int()),
		int(native.Get("eval_count").Int()),
	)
}
