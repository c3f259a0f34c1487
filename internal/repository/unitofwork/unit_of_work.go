package unitofwork

import (
	"context"

	"marketplace-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ProductEmbeddingRepository() contract.ProductEmbeddingRepository
}
