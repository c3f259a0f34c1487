package entity

import (
	"time"

	"github.com/google/uuid"
)

type ProductEmbedding struct {
	Id             uuid.UUID
	Document       string
	Category       string
	ProductName    string
	Price          string
	Source         string
	Metadata       map[string]interface{}
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
