package events

import "time"

const (
	TypeStageChanged = "STAGE_CHANGED"
	TypeSessionEnded = "SESSION_ENDED"
)

func NewStageChanged(sessionID, from, to string, visited []string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeStageChanged,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"from":           from,
			"to":             to,
			"visited_stages": visited,
		},
		OccurredAt: at,
	}
}

func NewSessionEnded(sessionID, finalStage string, turns int, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeSessionEnded,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"final_stage": finalStage,
			"turns":       turns,
		},
		OccurredAt: at,
	}
}
