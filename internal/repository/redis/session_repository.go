package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-assistant-be/internal/repository/contract"
	"marketplace-assistant-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "journey:session:"

// SessionRepository stores sessions as JSON so several API instances can share them
type SessionRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *goredis.Client, ttl time.Duration) contract.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	val, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}

	var s store.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if s.History == nil {
		s.History = []store.Turn{}
	}
	return &s, nil
}

// Save refreshes the TTL, so a session expires after ttl of inactivity
func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(session.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, key(sessionID)).Err()
}
