package store

import (
	"time"
)

// Document represents a retrieved product record used to ground a reply
type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Source returns the "source" metadata entry, or "" when absent
func (d Document) Source() string {
	if d.Metadata == nil {
		return ""
	}
	if s, ok := d.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// Turn is one immutable message of the conversation
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents the active journey state of one conversation
type Session struct {
	ID   string `json:"id"`
	Mode string `json:"mode"` // "main" | "single"

	// Owned by the state machine
	Stage         Stage   `json:"stage"`
	VisitedStages []Stage `json:"visited_stages"`

	// Append-only while the session lives, cleared on end
	History []Turn `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// Pipeline modes
	ModeMain   = "main"
	ModeSingle = "single"
)

// NewSession creates a session sitting in the Welcome stage
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:            id,
		Mode:          ModeMain,
		Stage:         StageWelcome,
		VisitedStages: []Stage{StageWelcome},
		History:       []Turn{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AppendTurn adds a turn to the history
func (s *Session) AppendTurn(role, content string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, Timestamp: at})
	s.UpdatedAt = at
}

// HasVisited reports whether st was already entered this session
func (s *Session) HasVisited(st Stage) bool {
	for _, v := range s.VisitedStages {
		if v == st {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stored sessions never alias a caller's value
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.VisitedStages = append([]Stage(nil), s.VisitedStages...)
	c.History = append([]Turn(nil), s.History...)
	if c.History == nil {
		c.History = []Turn{}
	}
	return &c
}
