package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ProductEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Document       string          `gorm:"type:text;not null"`
	Category       string          `gorm:"type:varchar(255);index"`
	ProductName    string          `gorm:"type:varchar(255)"`
	Price          string          `gorm:"type:varchar(100)"`
	Source         string          `gorm:"type:varchar(255);not null;index"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text and text-embedding-004 are both 768
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (ProductEmbedding) TableName() string {
	return "product_embeddings"
}
