package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/davidbz/ember/internal/domain"
)

type sessionKey struct {
	userID string
	appID  string
}

// SessionStore keeps sessions in process memory. Stored sessions are copied on
// the way in and out, so callers never share a backing array with the store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[sessionKey]domain.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		mu:       sync.RWMutex{},
		sessions: make(map[sessionKey]domain.Session),
	}
}

// GetSession returns nil without error when the user has no session for appID.
func (s *SessionStore) GetSession(_ context.Context, userID, appID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionKey{userID: userID, appID: appID}]
	if !ok {
		return nil, nil //nolint:nilnil // absence is not an error
	}

	return cloneSession(session), nil
}

// CreateSession stores a new session. An existing session for the same user
// and app is left untouched.
func (s *SessionStore) CreateSession(_ context.Context, userID string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{userID: userID, appID: session.AppID}
	if _, exists := s.sessions[key]; exists {
		return nil
	}

	s.sessions[key] = *cloneSession(*session)

	return nil
}

func (s *SessionStore) UpdateSession(_ context.Context, userID string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionKey{userID: userID, appID: session.AppID}] = *cloneSession(*session)

	return nil
}

func cloneSession(session domain.Session) *domain.Session {
	session.Messages = slices.Clone(session.Messages)
	if session.Messages == nil {
		session.Messages = []domain.Turn{}
	}
	return &session
}

// ProfileStore serves prompt context from process memory.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.PromptContext
}

// NewProfileStore creates an empty in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		mu:       sync.RWMutex{},
		profiles: make(map[string]domain.PromptContext),
	}
}

// SetPromptContext records the display name and memory summary for a user.
func (p *ProfileStore) SetPromptContext(_ context.Context, userID string, promptCtx domain.PromptContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.profiles[userID] = promptCtx

	return nil
}

// GetPromptContext returns an empty context for unknown users.
func (p *ProfileStore) GetPromptContext(_ context.Context, userID string) (domain.PromptContext, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.profiles[userID], nil
}
