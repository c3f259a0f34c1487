package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatSession struct {
	Id            uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Mode          string                      `gorm:"type:varchar(20);not null;default:'main'"`
	Stage         string                      `gorm:"type:varchar(50);not null;default:'Welcome'"`
	VisitedStages datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	EndedAt       *time.Time
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
