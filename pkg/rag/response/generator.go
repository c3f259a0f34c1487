package response

import (
	"context"
	"fmt"
	"strings"

	"marketplace-assistant-be/internal/constant"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/rag/history"
	"marketplace-assistant-be/pkg/store"
)

// GenerationError means the final reply could not be produced
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reply generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator turns a rendered stage prompt into the assistant reply
type Generator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

// NewGenerator creates a new response generator
func NewGenerator(llmProvider llm.LLMProvider, logger logger.ILogger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate sends the prior turns as conversational context followed by the
// rendered prompt. prior must not contain the current user turn, the prompt
// already embeds the question.
func (g *Generator) Generate(ctx context.Context, prior []store.Turn, renderedPrompt string) (string, error) {
	messages := append(history.ToMessages(prior), llm.Message{Role: "user", Content: renderedPrompt})

	reply, err := g.llmProvider.Chat(ctx, messages)
	if err != nil {
		return "", &GenerationError{Err: err}
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		g.logger.Warn("Generator", "Empty reply from model", map[string]interface{}{
			"context_turns": len(prior),
		})
		return constant.EmptyReplyMessage, nil
	}
	return reply, nil
}
