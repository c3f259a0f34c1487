package history

import (
	"context"

	"marketplace-assistant-be/internal/repository/specification"
	"marketplace-assistant-be/internal/repository/unitofwork"
	"marketplace-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// Loader reads transcripts that were archived in Postgres by end-session
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewLoader creates a new history loader
func NewLoader(uowFactory unitofwork.RepositoryFactory) *Loader {
	return &Loader{uowFactory: uowFactory}
}

// LoadArchived returns the persisted turns of a session in conversation order.
// found is false when the session was never archived.
func (l *Loader) LoadArchived(ctx context.Context, sessionID uuid.UUID) (*store.Session, bool, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		return nil, false, err
	}
	if chatSession == nil {
		return nil, false, nil
	}

	rows, err := uow.ChatMessageRepository().FindAll(ctx, specification.ByChatSessionID{ChatSessionID: sessionID})
	if err != nil {
		return nil, false, err
	}

	turns := make([]store.Turn, 0, len(rows))
	for _, r := range rows {
		turns = append(turns, store.Turn{Role: r.Role, Content: r.Chat, Timestamp: r.CreatedAt})
	}

	visited := make([]store.Stage, 0, len(chatSession.VisitedStages))
	for _, v := range chatSession.VisitedStages {
		visited = append(visited, store.Stage(v))
	}

	s := &store.Session{
		ID:            sessionID.String(),
		Mode:          chatSession.Mode,
		Stage:         store.Stage(chatSession.Stage),
		VisitedStages: visited,
		History:       turns,
		CreatedAt:     chatSession.CreatedAt,
	}
	if chatSession.UpdatedAt != nil {
		s.UpdatedAt = *chatSession.UpdatedAt
	}
	return s, true, nil
}
