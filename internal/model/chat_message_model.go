package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_position,priority:1"`
	Position      int       `gorm:"not null;index:idx_chat_messages_session_position,priority:2"` // order within the session transcript
	Role          string    `gorm:"type:varchar(50);not null"`
	Chat          string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
