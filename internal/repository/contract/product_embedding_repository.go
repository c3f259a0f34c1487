package contract

import (
	"context"

	"marketplace-assistant-be/internal/entity"
	"marketplace-assistant-be/internal/repository/specification"
)

// ScoredProductEmbedding wraps ProductEmbedding with its similarity score
type ScoredProductEmbedding struct {
	Embedding  *entity.ProductEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ProductEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.ProductEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.ProductEmbedding) error
	DeleteBySource(ctx context.Context, source string) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProductEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilarWithScore returns the closest products by cosine similarity, filtered by threshold
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredProductEmbedding, error)
}
