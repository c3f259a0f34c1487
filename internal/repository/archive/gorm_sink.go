package archive

import (
	"context"
	"fmt"
	"time"

	"marketplace-assistant-be/internal/entity"
	"marketplace-assistant-be/internal/repository/specification"
	"marketplace-assistant-be/internal/repository/unitofwork"
	"marketplace-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// GormSink archives ended sessions into chat_sessions and chat_messages.
// Repeated ends of the same session append after the last stored position.
type GormSink struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewGormSink(uowFactory unitofwork.RepositoryFactory) *GormSink {
	return &GormSink{uowFactory: uowFactory, now: time.Now}
}

func (s *GormSink) Persist(ctx context.Context, sessionID string, turns []store.Turn) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("archive session %q: %w", sessionID, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	now := s.now()
	chatSession, err := s.upsertSession(ctx, uow, id, now)
	if err != nil {
		return err
	}

	last, err := uow.ChatMessageRepository().MaxPosition(ctx, chatSession.Id)
	if err != nil {
		return err
	}

	messages := make([]*entity.ChatMessage, 0, len(turns))
	for i, t := range turns {
		createdAt := t.Timestamp
		if createdAt.IsZero() {
			createdAt = now
		}
		messages = append(messages, &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: chatSession.Id,
			Position:      last + 1 + i,
			Role:          t.Role,
			Chat:          t.Content,
			CreatedAt:     createdAt,
		})
	}
	if len(messages) > 0 {
		if err := uow.ChatMessageRepository().CreateBulk(ctx, messages); err != nil {
			return err
		}
	}

	return uow.Commit()
}

// RecordState stores the final stage and visited stages of the session
func (s *GormSink) RecordState(ctx context.Context, session *store.Session) error {
	id, err := uuid.Parse(session.ID)
	if err != nil {
		return fmt.Errorf("archive session %q: %w", session.ID, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	chatSession, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if chatSession == nil {
		return fmt.Errorf("archive session %s: not persisted", id)
	}

	visited := make([]string, len(session.VisitedStages))
	for i, v := range session.VisitedStages {
		visited[i] = string(v)
	}
	chatSession.Mode = session.Mode
	chatSession.Stage = string(session.Stage)
	chatSession.VisitedStages = visited
	return uow.ChatSessionRepository().Update(ctx, chatSession)
}

func (s *GormSink) upsertSession(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID, now time.Time) (*entity.ChatSession, error) {
	repo := uow.ChatSessionRepository()

	chatSession, err := repo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		chatSession = &entity.ChatSession{
			Id:            id,
			Mode:          store.ModeMain,
			Stage:         string(store.StageWelcome),
			VisitedStages: []string{string(store.StageWelcome)},
			EndedAt:       &now,
			CreatedAt:     now,
		}
		if err := repo.Create(ctx, chatSession); err != nil {
			return nil, err
		}
		return chatSession, nil
	}

	chatSession.EndedAt = &now
	chatSession.UpdatedAt = &now
	if err := repo.Update(ctx, chatSession); err != nil {
		return nil, err
	}
	return chatSession, nil
}
