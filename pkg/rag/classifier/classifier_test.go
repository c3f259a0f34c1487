package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply       string
	err         error
	prompts     []string
	temperature float64
}

func (p *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, options...)
}

func (p *stubProvider) Generate(_ context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := &llm.Options{Temperature: 0.7}
	for _, o := range options {
		o(opts)
	}
	p.temperature = opts.Temperature
	p.prompts = append(p.prompts, prompt)
	return p.reply, p.err
}

func turns(pairs ...string) []store.Turn {
	out := make([]store.Turn, 0, len(pairs))
	for i, c := range pairs {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		out = append(out, store.Turn{Role: role, Content: c, Timestamp: time.Now()})
	}
	return out
}

func TestLLMClassifierParsesReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    store.Stage
		wantRaw string
	}{
		{name: "exact", reply: "ProductSearch", want: store.StageProductSearch},
		{name: "surrounding whitespace", reply: "  CollectInfo\n", want: store.StageCollectInfo},
		{name: "malformed", reply: "produto_search", wantRaw: "produto_search"},
		{name: "sentence", reply: "The current stage is ProductQA.", wantRaw: "The current stage is ProductQA."},
		{name: "empty", reply: "   ", wantRaw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{reply: tt.reply}
			c := NewLLMClassifier(p, logger.NewNopLogger())

			got, err := c.Classify(context.Background(), turns("Oi"), []store.Stage{store.StageWelcome})
			assert.Equal(t, 0.0, p.temperature)

			if tt.want == "" {
				var unrec *UnrecognizedStageError
				require.True(t, errors.As(err, &unrec))
				assert.Equal(t, tt.wantRaw, unrec.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMClassifierTransportFailure(t *testing.T) {
	transport := &llm.TransportError{Provider: "ollama", Retryable: true, Err: context.DeadlineExceeded}
	c := NewLLMClassifier(&stubProvider{err: transport}, logger.NewNopLogger())

	_, err := c.Classify(context.Background(), turns("Oi"), nil)

	var classErr *ClassificationError
	require.True(t, errors.As(err, &classErr))
	assert.True(t, llm.IsRetryable(err))
}

func TestLLMClassifierIsStableForSameInput(t *testing.T) {
	p := &stubProvider{reply: "ProductQA"}
	c := NewLLMClassifier(p, logger.NewNopLogger())
	history := turns("Quero uma geladeira", "Temos a Brastemp", "Qual a voltagem?")
	visited := []store.Stage{store.StageWelcome, store.StageProductSearch}

	first, err := c.Classify(context.Background(), history, visited)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), history, visited)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, p.prompts, 2)
	assert.Equal(t, p.prompts[0], p.prompts[1])
}

func TestBuildPromptContents(t *testing.T) {
	history := turns("Oi", "Olá! Sou o assistente.", "Quero um notebook")
	prompt := BuildPrompt(history, []store.Stage{store.StageWelcome, store.StageProductSearch})

	assert.Contains(t, prompt, "Human: Oi\nAI: Olá! Sou o assistente.\nHuman: Quero um notebook")
	assert.Contains(t, prompt, "Welcome > ProductSearch > ProductQA > CollectInfo > ConfirmPurchase > ThankYou")
	assert.Contains(t, prompt, "The user has already visited these stages: 'Welcome, ProductSearch'")
	for _, s := range store.AllStages() {
		assert.Contains(t, prompt, string(s)+": ")
	}
	assert.True(t, strings.HasSuffix(prompt, "Reply only the specified stage name."))
}

func TestRuleClassifier(t *testing.T) {
	all := []store.Stage{store.StageWelcome}
	searched := []store.Stage{store.StageWelcome, store.StageProductSearch}
	collected := append(append([]store.Stage{}, searched...), store.StageProductQA, store.StageCollectInfo)
	confirmed := append(append([]store.Stage{}, collected...), store.StageConfirmPurchase)

	tests := []struct {
		name    string
		message string
		visited []store.Stage
		want    store.Stage
	}{
		{name: "greeting", message: "Oi", visited: all, want: store.StageWelcome},
		{name: "greeting with punctuation", message: "Olá, bom dia!", visited: all, want: store.StageWelcome},
		{name: "product request", message: "Vocês vendem geladeira?", visited: all, want: store.StageProductSearch},
		{name: "detail question", message: "Qual o preço da Brastemp?", visited: searched, want: store.StageProductQA},
		{name: "purchase intent", message: "Quero comprar essa", visited: searched, want: store.StageCollectInfo},
		{name: "contact details first time", message: "João Silva, joao@mail.com, 11 99999-8888", visited: searched, want: store.StageCollectInfo},
		{name: "contact details after collect", message: "João Silva, joao@mail.com, 11 99999-8888", visited: collected, want: store.StageConfirmPurchase},
		{name: "thanks after confirm", message: "Obrigado!", visited: confirmed, want: store.StageThankYou},
	}

	c := NewRuleClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), turns(tt.message), tt.visited)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
