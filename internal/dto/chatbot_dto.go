package dto

import (
	"time"
)

type QueryRequest struct {
	Question  string `json:"question" validate:"required"`
	Stage     string `json:"stage" validate:"oneof=main single"` // pipeline mode, defaults to "main"
	SessionId string `json:"session_id" validate:"omitempty,uuid"`
}

type QueryResponse struct {
	Message       string   `json:"message"`
	RagContent    string   `json:"rag_content,omitempty"`
	SessionId     string   `json:"session_id"`
	Stage         string   `json:"stage"`
	VisitedStages []string `json:"visited_stages"`
}

type EndSessionRequest struct {
	SessionId string `json:"session_id" validate:"required,uuid"`
}

type EndSessionResponse struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id"`
	Stage     string `json:"stage"`
}

type ChatTurnResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionResponse struct {
	SessionId     string             `json:"session_id"`
	Mode          string             `json:"mode"`
	Stage         string             `json:"stage"`
	VisitedStages []string           `json:"visited_stages"`
	History       []ChatTurnResponse `json:"history"`
	Archived      bool               `json:"archived"` // read back from chat_messages after end-session
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// WebsocketMessage is exchanged in both directions on /ws
type WebsocketMessage struct {
	Type       string   `json:"type"` // "query" | "end" | "session" | "reply" | "ended" | "event" | "error"
	SessionId  string   `json:"session_id,omitempty"`
	Question   string   `json:"question,omitempty"`
	Message    string   `json:"message,omitempty"`
	RagContent string   `json:"rag_content,omitempty"`
	Stage      string   `json:"stage,omitempty"`
	Visited    []string `json:"visited_stages,omitempty"`
	Event      string   `json:"event,omitempty"`
}
