package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace-assistant-be/internal/constant"
	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/rag/history"
	"marketplace-assistant-be/pkg/rag/journey"
	"marketplace-assistant-be/pkg/rag/session"
	"marketplace-assistant-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
)

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error)
	EndSession(ctx context.Context, request *dto.EndSessionRequest) (*dto.EndSessionResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
}

// JourneyRunner is the part of journey.Journey the service drives
type JourneyRunner interface {
	Handle(ctx context.Context, s *store.Session, question string) (*journey.Result, error)
	EndSession(ctx context.Context, s *store.Session) error
}

type chatbotService struct {
	journey  JourneyRunner
	sessions *session.Manager
	archive  *history.Loader // optional, nil without a database
	logger   logger.ILogger
}

func NewChatbotService(
	journey JourneyRunner,
	sessions *session.Manager,
	archive *history.Loader,
	logger logger.ILogger,
) IChatbotService {
	return &chatbotService{
		journey:  journey,
		sessions: sessions,
		archive:  archive,
		logger:   logger,
	}
}

func (s *chatbotService) Query(ctx context.Context, request *dto.QueryRequest) (*dto.QueryResponse, error) {
	mode := request.Stage
	if mode == "" {
		mode = store.ModeMain
	}
	sessionId := request.SessionId
	if sessionId == "" {
		sessionId = uuid.NewString()
	}

	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	sess, created, err := s.sessions.LoadOrCreate(ctx, sessionId, mode)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionId, err)
	}
	if created {
		s.logger.Info("CHATBOT", "Session created", map[string]interface{}{
			"session_id": sess.ID,
			"mode":       sess.Mode,
		})
	}

	result, turnErr := s.journey.Handle(ctx, sess, request.Question)

	// A failed turn still keeps the user message in the history
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	if turnErr != nil {
		return nil, turnErr
	}

	return &dto.QueryResponse{
		Message:       result.Reply,
		RagContent:    result.Document,
		SessionId:     sess.ID,
		Stage:         string(sess.Stage),
		VisitedStages: stageNames(sess.VisitedStages),
	}, nil
}

func (s *chatbotService) EndSession(ctx context.Context, request *dto.EndSessionRequest) (*dto.EndSessionResponse, error) {
	unlock := s.sessions.Lock(request.SessionId)
	defer unlock()

	sess, err := s.sessions.Get(ctx, request.SessionId)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	if err := s.journey.EndSession(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}

	return &dto.EndSessionResponse{
		Message:   constant.SessionEndedMessage,
		SessionId: sess.ID,
		Stage:     string(sess.Stage),
	}, nil
}

func (s *chatbotService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	id, err := uuid.Parse(sessionId)
	if err != nil {
		return nil, ErrInvalidSessionID
	}

	sess, err := s.sessions.Get(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return toSessionResponse(sess, false), nil
	}

	if s.archive == nil {
		return nil, ErrSessionNotFound
	}
	archived, found, err := s.archive.LoadArchived(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return toSessionResponse(archived, true), nil
}

func toSessionResponse(sess *store.Session, archived bool) *dto.SessionResponse {
	turns := make([]dto.ChatTurnResponse, 0, len(sess.History))
	for _, t := range sess.History {
		turns = append(turns, dto.ChatTurnResponse{
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: t.Timestamp,
		})
	}
	return &dto.SessionResponse{
		SessionId:     sess.ID,
		Mode:          sess.Mode,
		Stage:         string(sess.Stage),
		VisitedStages: stageNames(sess.VisitedStages),
		History:       turns,
		Archived:      archived,
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
	}
}

func stageNames(stages []store.Stage) []string {
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = string(st)
	}
	return names
}
