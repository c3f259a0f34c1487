package contract

import (
	"context"

	"marketplace-assistant-be/internal/entity"
	"marketplace-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	CreateBulk(ctx context.Context, messages []*entity.ChatMessage) error
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// MaxPosition returns -1 when the session has no messages yet
	MaxPosition(ctx context.Context, sessionId uuid.UUID) (int, error)
}
