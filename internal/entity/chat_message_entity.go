package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Position      int
	Role          string
	Chat          string
	CreatedAt     time.Time
}
