package history

import (
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/store"
)

// ToMessages maps transcript turns to the provider message format
func ToMessages(turns []store.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == store.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	return messages
}
