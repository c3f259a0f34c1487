package response

import (
	"context"
	"errors"
	"testing"

	"marketplace-assistant-be/internal/constant"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatStub struct {
	reply string
	err   error
	got   []llm.Message
}

func (c *chatStub) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	c.got = history
	return c.reply, c.err
}

func (c *chatStub) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func TestGenerateSendsPriorTurnsThenPrompt(t *testing.T) {
	stub := &chatStub{reply: "  Temos sim!  "}
	g := NewGenerator(stub, logger.NewNopLogger())

	prior := []store.Turn{
		{Role: store.RoleUser, Content: "Oi"},
		{Role: store.RoleAssistant, Content: "Olá!"},
	}
	reply, err := g.Generate(context.Background(), prior, "PROMPT")
	require.NoError(t, err)
	assert.Equal(t, "Temos sim!", reply)

	require.Len(t, stub.got, 3)
	assert.Equal(t, "assistant", stub.got[1].Role)
	assert.Equal(t, llm.Message{Role: "user", Content: "PROMPT"}, stub.got[2])
}

func TestGenerateEmptyReply(t *testing.T) {
	g := NewGenerator(&chatStub{reply: "\n"}, logger.NewNopLogger())
	reply, err := g.Generate(context.Background(), nil, "PROMPT")
	require.NoError(t, err)
	assert.Equal(t, constant.EmptyReplyMessage, reply)
}

func TestGenerateFailure(t *testing.T) {
	cause := &llm.TransportError{Provider: "ollama", Retryable: true, Err: errors.New("timeout")}
	g := NewGenerator(&chatStub{err: cause}, logger.NewNopLogger())

	_, err := g.Generate(context.Background(), nil, "PROMPT")
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.True(t, llm.IsRetryable(err))
}
