package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

const (
	profileNameField     = "name"
	profileMemoriesField = "memories"
)

// NewClient creates a go-redis client from configuration.
func NewClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// SessionStore persists sessions as JSON documents, one key per user and app.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(userID, appID string) string {
	return fmt.Sprintf("%s:session:%s:%s", s.prefix, userID, appID)
}

// GetSession returns nil without error when no session is stored.
func (s *SessionStore) GetSession(ctx context.Context, userID, appID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(userID, appID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if session.Messages == nil {
		session.Messages = []domain.Turn{}
	}

	return &session, nil
}

// CreateSession stores a new session. An existing session for the same user
// and app is left untouched.
func (s *SessionStore) CreateSession(ctx context.Context, userID string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(userID, session.AppID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if !created {
		observability.FromContext(ctx).Warn("session already exists, keeping stored copy",
			observability.String("session_id", session.ID))
	}

	return nil
}

func (s *SessionStore) UpdateSession(ctx context.Context, userID string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(userID, session.AppID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// ProfileStore reads long-term memory from a hash per user holding the
// display name and a memory summary.
type ProfileStore struct {
	client *redis.Client
	prefix string
}

// NewProfileStore creates a Redis-backed profile store.
func NewProfileStore(client *redis.Client, prefix string) *ProfileStore {
	return &ProfileStore{client: client, prefix: prefix}
}

func (p *ProfileStore) key(userID string) string {
	return fmt.Sprintf("%s:profile:%s", p.prefix, userID)
}

// GetPromptContext returns an empty context when the user has no profile.
func (p *ProfileStore) GetPromptContext(ctx context.Context, userID string) (domain.PromptContext, error) {
	fields, err := p.client.HGetAll(ctx, p.key(userID)).Result()
	if err != nil {
		return domain.PromptContext{}, fmt.Errorf("failed to read profile: %w", err)
	}

	return domain.PromptContext{
		DisplayName:   fields[profileNameField],
		MemorySummary: fields[profileMemoriesField],
	}, nil
}

// SetPromptContext writes both profile fields in one round trip.
func (p *ProfileStore) SetPromptContext(ctx context.Context, userID string, promptCtx domain.PromptContext) error {
	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, p.key(userID),
		profileNameField, promptCtx.DisplayName,
		profileMemoriesField, promptCtx.MemorySummary,
	)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	return nil
}
