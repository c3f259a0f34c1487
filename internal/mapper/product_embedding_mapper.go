package mapper

import (
	"encoding/json"
	"time"

	"marketplace-assistant-be/internal/entity"
	"marketplace-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ProductEmbeddingMapper struct{}

func NewProductEmbeddingMapper() *ProductEmbeddingMapper {
	return &ProductEmbeddingMapper{}
}

func (m *ProductEmbeddingMapper) ToEntity(e *model.ProductEmbedding) *entity.ProductEmbedding {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	metadata := map[string]interface{}{}
	if len(e.Metadata) > 0 {
		// Unreadable metadata degrades to empty; the columns remain authoritative
		_ = json.Unmarshal(e.Metadata, &metadata)
	}

	return &entity.ProductEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		Category:       e.Category,
		ProductName:    e.ProductName,
		Price:          e.Price,
		Source:         e.Source,
		Metadata:       metadata,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *ProductEmbeddingMapper) ToModel(e *entity.ProductEmbedding) *model.ProductEmbedding {
	if e == nil {
		return nil
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	var metadata datatypes.JSON
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	return &model.ProductEmbedding{
		Id:             e.Id,
		Document:       e.Document,
		Category:       e.Category,
		ProductName:    e.ProductName,
		Price:          e.Price,
		Source:         e.Source,
		Metadata:       metadata,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *ProductEmbeddingMapper) ToEntities(embeddings []*model.ProductEmbedding) []*entity.ProductEmbedding {
	entities := make([]*entity.ProductEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *ProductEmbeddingMapper) ToModels(embeddings []*entity.ProductEmbedding) []*model.ProductEmbedding {
	models := make([]*model.ProductEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
