package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// Ended keeps sessions whose transcript was persisted at least once
type Ended struct{}

func (s Ended) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("ended_at IS NOT NULL")
}
