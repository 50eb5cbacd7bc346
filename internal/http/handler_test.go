package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidbz/ember/internal/config"
	"github.com/davidbz/ember/internal/domain"
	apihttp "github.com/davidbz/ember/internal/http"
	"github.com/davidbz/ember/internal/http/middleware"
	"github.com/davidbz/ember/internal/observability"
	"github.com/davidbz/ember/internal/store/memory"
)

// fakeProvider replies with fixed fragments and can fail mid-stream.
type fakeProvider struct {
	healthy   bool
	fragments []string
	streamErr error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(context.Context, []domain.Message, domain.CompletionOptions) (*domain.Completion, error) {
	return &domain.Completion{
		ID:           "cmpl-1",
		Provider:     "fake",
		Role:         domain.RoleAssistant,
		Content:      strings.Join(f.fragments, ""),
		FinishReason: "stop",
	}, nil
}

func (f *fakeProvider) Stream(context.Context, []domain.Message, domain.CompletionOptions) iter.Seq2[domain.Delta, error] {
	return func(yield func(domain.Delta, error) bool) {
		for _, fragment := range f.fragments {
			if !yield(domain.Delta{Content: fragment}, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(domain.Delta{}, f.streamErr)
		}
	}
}

func (f *fakeProvider) Embed(context.Context, string) ([]float64, error) { return nil, nil }

func (f *fakeProvider) EmbedBatch(context.Context, []string) ([][]float64, error) { return nil, nil }

func (f *fakeProvider) IsHealthy(context.Context) bool { return f.healthy }

func (f *fakeProvider) ListModels(context.Context) []domain.ModelInfo {
	return []domain.ModelInfo{{ID: "fake-model"}}
}

type fixedSelector struct {
	provider domain.Provider
}

func (s fixedSelector) Default(context.Context) (domain.Provider, error) {
	return s.provider, nil
}

type testServer struct {
	routes   http.Handler
	sessions *memory.SessionStore
}

func newTestServer(t *testing.T, provider *fakeProvider) testServer {
	t.Helper()
	observability.SetLogger(zap.NewNop())

	sessions := memory.NewSessionStore()
	chat := domain.NewChatService(fixedSelector{provider: provider}, sessions, memory.NewProfileStore(),
		&domain.ChatConfig{HistoryWindow: 10, AssistantName: "Omi"})

	server := apihttp.NewServer(&config.ServerConfig{Port: 0}, apihttp.NewHandler(chat),
		middleware.Chain(middleware.Trace(), middleware.Identity()))

	return testServer{routes: server.Routes(), sessions: sessions}
}

func (s testServer) do(method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.routes.ServeHTTP(rec, req)
	return rec
}

func TestHandleSendMessage(t *testing.T) {
	t.Run("returns the reply and the stored turn", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: true, fragments: []string{"Hel", "lo"}})

		rec := srv.do(http.MethodPost, "/v1/chat/messages", "user-1", `{"text":"Hi","app_id":"app-1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var result domain.SendResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
		require.Equal(t, "Hello", result.Reply.Content)
		require.Equal(t, domain.SenderAI, result.Message.Sender)
		require.Equal(t, "app-1", result.Message.AppID)

		session, err := srv.sessions.GetSession(context.Background(), "user-1", "app-1")
		require.NoError(t, err)
		require.Len(t, session.Messages, 2)
	})

	t.Run("rejects requests without a user id", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: true})

		rec := srv.do(http.MethodPost, "/v1/chat/messages", "", `{"text":"Hi"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: true})

		rec := srv.do(http.MethodPost, "/v1/chat/messages", "user-1", `{"text":`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid request body")
	})

	t.Run("rejects empty text", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: true})

		rec := srv.do(http.MethodPost, "/v1/chat/messages", "user-1", `{"text":"   "}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps an unavailable backend to 503", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: false})

		rec := srv.do(http.MethodPost, "/v1/chat/messages", "user-1", `{"text":"Hi"}`)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		session, err := srv.sessions.GetSession(context.Background(), "user-1", "")
		require.NoError(t, err)
		require.Nil(t, session)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: true})

		rec := srv.do(http.MethodGet, "/v1/chat/messages", "user-1", "")

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandleStreamMessage(t *testing.T) {
	t.Run("writes the reply as plain text", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: true, fragments: []string{"Hel", "lo"}})

		rec := srv.do(http.MethodPost, "/v1/chat/messages/stream", "user-1", `{"text":"Hi"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		require.Equal(t, "Hello", string(body))
		require.True(t, rec.Flushed)
	})

	t.Run("appends the notice after a mid-stream failure", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{
			healthy:   true,
			fragments: []string{"Hel", "lo"},
			streamErr: domain.ErrBackendUnavailable,
		})

		rec := srv.do(http.MethodPost, "/v1/chat/messages/stream", "user-1", `{"text":"Hi"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Hello"+domain.StreamFallbackNotice, rec.Body.String())

		session, err := srv.sessions.GetSession(context.Background(), "user-1", "")
		require.NoError(t, err)
		require.Len(t, session.Messages, 2)
		require.Equal(t, "Hello"+domain.StreamFallbackNotice, session.Messages[1].Text)
	})

	t.Run("maps an unavailable backend to 503", func(t *testing.T) {
		srv := newTestServer(t, &fakeProvider{healthy: false})

		rec := srv.do(http.MethodPost, "/v1/chat/messages/stream", "user-1", `{"text":"Hi"}`)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleChatHealth(t *testing.T) {
	tests := []struct {
		name       string
		healthy    bool
		wantStatus int
		wantModels int
	}{
		{name: "healthy backend", healthy: true, wantStatus: http.StatusOK, wantModels: 1},
		{name: "unavailable backend", healthy: false, wantStatus: http.StatusServiceUnavailable, wantModels: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeProvider{healthy: tt.healthy})

			rec := srv.do(http.MethodGet, "/v1/chat/health", "", "")

			require.Equal(t, tt.wantStatus, rec.Code)
			var report domain.HealthReport
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
			require.Equal(t, "fake", report.Provider)
			require.Len(t, report.Models, tt.wantModels)
		})
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{})

	rec := srv.do(http.MethodGet, "/health", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
