package contract

import (
	"context"

	"marketplace-assistant-be/pkg/store"
)

// SessionRepository keeps live journey sessions between turns.
// Get returns (nil, nil) for an unknown or expired session.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*store.Session, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, sessionID string) error
}
