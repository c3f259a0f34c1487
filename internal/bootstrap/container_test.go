package bootstrap

import (
	"testing"

	"marketplace-assistant-be/internal/config"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/internal/repository/archive"
	"marketplace-assistant-be/pkg/rag/classifier"
	"marketplace-assistant-be/pkg/rag/transcript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranscriptSink(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewTranscriptSink(config.TranscriptConfig{Dir: dir, Sinks: []string{"csv"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &transcript.CSVSink{}, sink)

	sink, err = NewTranscriptSink(config.TranscriptConfig{Dir: dir, Sinks: []string{"csv", "gorm"}}, nil)
	require.NoError(t, err)
	multi, ok := sink.(transcript.MultiSink)
	require.True(t, ok)
	require.Len(t, multi, 2)
	assert.IsType(t, &archive.GormSink{}, multi[1])
	_, records := sink.(transcript.StateRecorder)
	assert.True(t, records)

	sink, err = NewTranscriptSink(config.TranscriptConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, transcript.NopSink{}, sink)

	_, err = NewTranscriptSink(config.TranscriptConfig{Sinks: []string{"s3"}}, nil)
	assert.ErrorContains(t, err, "s3")
}

func TestNewClassifier(t *testing.T) {
	assert.IsType(t, &classifier.RuleClassifier{}, NewClassifier("rule", nil, logger.NewNopLogger()))
	assert.IsType(t, &classifier.LLMClassifier{}, NewClassifier("llm", nil, logger.NewNopLogger()))
}

func TestNewPromptRegistry(t *testing.T) {
	registry, err := NewPromptRegistry("")
	require.NoError(t, err)
	_, err = registry.Main()
	assert.NoError(t, err)

	_, err = NewPromptRegistry("/does/not/exist.yaml")
	assert.Error(t, err)
}
