package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketplace-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryRequiredVariables(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		stage store.Stage
		want  []string
	}{
		{store.StageWelcome, []string{"question"}},
		{store.StageProductSearch, []string{"document", "question"}},
		{store.StageProductQA, []string{"document", "question"}},
		{store.StageCollectInfo, []string{"question"}},
		{store.StageConfirmPurchase, []string{"question"}},
		{store.StageThankYou, []string{"question"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			tpl, err := r.Get(tt.stage)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tpl.RequiredVariables)
			assert.Equal(t, tt.stage, tpl.Stage)
		})
	}

	main, err := r.Main()
	require.NoError(t, err)
	assert.True(t, main.Requires(VarDocument))
}

func TestRegistryUnknownStage(t *testing.T) {
	_, err := DefaultRegistry().Get(store.Stage("Checkout"))
	var unknown *UnknownStageError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, store.Stage("Checkout"), unknown.Stage)
}

func TestRenderWelcomeIgnoresDocument(t *testing.T) {
	tpl, err := DefaultRegistry().Get(store.StageWelcome)
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"question": "Oi", "document": "SHOULD NOT APPEAR"})
	require.NoError(t, err)
	assert.Contains(t, out, "Aqui está a questão do usuário: Oi")
	assert.NotContains(t, out, "SHOULD NOT APPEAR")
	assert.NotContains(t, out, "{question}")
}

func TestRenderGroundedWithEmptyDocument(t *testing.T) {
	tpl, err := DefaultRegistry().Get(store.StageProductSearch)
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"question": "Tem geladeira?", "document": ""})
	require.NoError(t, err)
	assert.NotContains(t, out, "{document}")
	assert.Contains(t, out, "Tem geladeira?")
}

func TestRenderMissingBinding(t *testing.T) {
	tpl, err := DefaultRegistry().Get(store.StageProductQA)
	require.NoError(t, err)

	_, err = tpl.Render(map[string]string{"question": "Qual a voltagem?"})
	var bindErr *TemplateBindingError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, "document", bindErr.Variable)
	assert.Equal(t, store.StageProductQA, bindErr.Stage)
}

func TestRenderDoesNotReexpandBoundValues(t *testing.T) {
	tpl, err := NewTemplate(store.StageProductQA, "{document} | {question}", "question", "document")
	require.NoError(t, err)

	out, err := tpl.Render(map[string]string{"question": "q", "document": "literal {question}"})
	require.NoError(t, err)
	assert.Equal(t, "literal {question} | q", out)
}

func TestNewTemplateValidation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		required []string
		wantErr  string
	}{
		{name: "question not required", text: "hello {document}", required: []string{"document"}, wantErr: "must require"},
		{name: "undeclared placeholder", text: "{question} {price}", required: []string{"question"}, wantErr: "undeclared"},
		{name: "declared but unused", text: "{question}", required: []string{"question", "document"}, wantErr: "never uses"},
		{name: "valid", text: "{question}", required: []string{"question"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplate(store.StageWelcome, tt.text, tt.required...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistryOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := strings.Join([]string{
		"stages:",
		"  Welcome: \"Bem-vindo! {question}\"",
		"  ProductQA: \"Dados: {document} Pergunta: {question}\"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := LoadRegistry(path)
	require.NoError(t, err)

	welcome, err := r.Get(store.StageWelcome)
	require.NoError(t, err)
	out, err := welcome.Render(map[string]string{"question": "Oi"})
	require.NoError(t, err)
	assert.Equal(t, "Bem-vindo! Oi", out)

	// untouched stages keep the built-in copy
	thanks, err := r.Get(store.StageThankYou)
	require.NoError(t, err)
	assert.Contains(t, thanks.Text, "feedback")
}

func TestLoadRegistryRejectsBadOverrides(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("stages:\n  Checkout: \"{question}\"\n"), 0o644))
	_, err := LoadRegistry(unknown)
	var unknownErr *UnknownStageError
	assert.True(t, errors.As(err, &unknownErr))

	// grounded stage override without {document}
	ungrounded := filepath.Join(dir, "ungrounded.yaml")
	require.NoError(t, os.WriteFile(ungrounded, []byte("stages:\n  ProductSearch: \"{question}\"\n"), 0o644))
	_, err = LoadRegistry(ungrounded)
	assert.Error(t, err)
}
