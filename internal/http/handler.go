package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

// Handler handles HTTP requests.
type Handler struct {
	chat *domain.ChatService
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(chat *domain.ChatService) *Handler {
	return &Handler{
		chat: chat,
	}
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	AppID string `json:"app_id,omitempty"`
}

// HandleSendMessage answers a chat message with a buffered reply.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := decodeMessage(ctx, w, r)
	if !ok {
		return
	}

	result, err := h.chat.SendMessage(ctx, observability.GetUserID(ctx), req.Text, req.AppID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, result)
}

// HandleStreamMessage answers a chat message with the reply text written as a
// chunked plain text body. Fragments are flushed as they arrive.
func (h *Handler) HandleStreamMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	req, ok := decodeMessage(ctx, w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	fragments, err := h.chat.StreamMessage(ctx, observability.GetUserID(ctx), req.Text, req.AppID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	for fragment := range fragments {
		if _, writeErr := fmt.Fprint(w, fragment); writeErr != nil {
			logger.Warn("client went away mid-stream", observability.Error(writeErr))
			break
		}
		flusher.Flush()
	}
}

// HandleChatHealth reports backend availability; 503 when unavailable.
func (h *Handler) HandleChatHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report := h.chat.CheckHealth(ctx)

	status := http.StatusOK
	if report.Status != domain.StatusHealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(ctx, w, status, report)
}

// HandleHealth handles process liveness checks.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status": domain.StatusHealthy,
	})
}

func decodeMessage(ctx context.Context, w http.ResponseWriter, r *http.Request) (sendMessageRequest, bool) {
	var req sendMessageRequest

	if observability.GetUserID(ctx) == "" {
		http.Error(w, "user id not specified in X-User-Id header", http.StatusBadRequest)
		return req, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return req, false
	}

	return req, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	observability.FromContext(ctx).Error("chat request failed",
		observability.Error(err),
		observability.Int("status", status))
	http.Error(w, err.Error(), status)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}
