package journey

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/events"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/metrics"
	"marketplace-assistant-be/pkg/rag/classifier"
	"marketplace-assistant-be/pkg/rag/prompt"
	"marketplace-assistant-be/pkg/rag/retrieval"
	"marketplace-assistant-be/pkg/rag/state"
	"marketplace-assistant-be/pkg/rag/transcript"
	"marketplace-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs ---

type stubRetriever struct {
	docs  []store.Document
	err   error
	calls int
}

func (r *stubRetriever) Retrieve(context.Context, string) ([]store.Document, error) {
	r.calls++
	return r.docs, r.err
}

type stubClassifier struct {
	stage store.Stage
	err   error
	calls int
}

func (c *stubClassifier) Classify(context.Context, []store.Turn, []store.Stage) (store.Stage, error) {
	c.calls++
	return c.stage, c.err
}

// stubLLM answers Chat with reply and Generate (the classifier) with stage
type stubLLM struct {
	mu        sync.Mutex
	reply     string
	chatErr   error
	stage     string
	chatCalls [][]llm.Message
}

func (l *stubLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chatCalls = append(l.chatCalls, history)
	return l.reply, l.chatErr
}

func (l *stubLLM) Generate(context.Context, string, ...llm.Option) (string, error) {
	return l.stage, nil
}

func (l *stubLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	last := l.chatCalls[len(l.chatCalls)-1]
	return last[len(last)-1].Content
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

var catalogDocs = []store.Document{
	{Content: "Eletrodomésticos: Geladeira Brastemp Frost Free - R$ 3.499", Metadata: map[string]interface{}{"source": "produtos.txt"}},
}

type fixture struct {
	retriever  *stubRetriever
	classifier *stubClassifier
	llm        *stubLLM
	publisher  *recordingPublisher
	metrics    *metrics.JourneyMetrics
	journey    *Journey
}

func newFixture(t *testing.T, mutate ...func(*Dependencies)) *fixture {
	t.Helper()
	f := &fixture{
		retriever:  &stubRetriever{docs: catalogDocs},
		classifier: &stubClassifier{stage: store.StageProductSearch},
		llm:        &stubLLM{reply: "Temos sim!"},
		publisher:  &recordingPublisher{},
		metrics:    metrics.NewJourneyMetrics(),
	}
	d := Dependencies{
		Registry:   prompt.DefaultRegistry(),
		Classifier: f.classifier,
		Retriever:  f.retriever,
		LLM:        f.llm,
		Publisher:  f.publisher,
		Metrics:    f.metrics,
		Logger:     logger.NewNopLogger(),
	}
	for _, m := range mutate {
		m(&d)
	}
	f.journey = New(d)
	return f
}

func newSession() *store.Session {
	return store.NewSession("sess-test", time.Now())
}

func assertNoDuplicates(t *testing.T, visited []store.Stage) {
	t.Helper()
	seen := map[store.Stage]bool{}
	for _, v := range visited {
		assert.False(t, seen[v], "duplicate visited stage %s", v)
		seen[v] = true
	}
}

// --- scenarios ---

func TestGreetingStaysInWelcome(t *testing.T) {
	f := newFixture(t)
	f.classifier.stage = store.StageWelcome
	s := newSession()

	res, err := f.journey.Handle(context.Background(), s, "Oi")
	require.NoError(t, err)

	assert.Equal(t, store.StageWelcome, s.Stage)
	assert.Equal(t, []store.Stage{store.StageWelcome}, s.VisitedStages)
	assert.False(t, res.Transitioned)
	assert.Equal(t, "Temos sim!", res.Reply)

	tmpl, err := prompt.DefaultRegistry().Get(store.StageWelcome)
	require.NoError(t, err)
	want, err := tmpl.Render(map[string]string{prompt.VarQuestion: "Oi"})
	require.NoError(t, err)
	assert.Equal(t, want, f.llm.lastPrompt())
	assert.NotContains(t, f.llm.lastPrompt(), "Geladeira")
	assert.Empty(t, f.publisher.events)
}

func TestProductQAToCollectInfo(t *testing.T) {
	f := newFixture(t)
	f.classifier.stage = store.StageCollectInfo
	s := newSession()
	s.Stage = store.StageProductQA
	s.VisitedStages = []store.Stage{store.StageWelcome, store.StageProductSearch, store.StageProductQA}

	res, err := f.journey.Handle(context.Background(), s, "Sou Maria Silva, maria@email.com, 11 99999-8888")
	require.NoError(t, err)

	assert.True(t, res.Transitioned)
	assert.Equal(t, store.StageCollectInfo, s.Stage)
	assert.Equal(t, []store.Stage{store.StageWelcome, store.StageProductSearch, store.StageProductQA, store.StageCollectInfo}, s.VisitedStages)

	// Staying in CollectInfo does not append again
	_, err = f.journey.Handle(context.Background(), s, "Pode confirmar?")
	require.NoError(t, err)
	assert.Len(t, s.VisitedStages, 4)
	assertNoDuplicates(t, s.VisitedStages)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeStageChanged, f.publisher.events[0].EventType())
	assert.Equal(t, "CollectInfo", f.publisher.events[0].Payload()["to"])
}

func TestUnrecognizedStageKeepsCurrentAndReplies(t *testing.T) {
	stub := &stubLLM{reply: "Aqui estão as geladeiras.", stage: "produto_search"}
	f := newFixture(t, func(d *Dependencies) {
		d.LLM = stub
		d.Classifier = classifier.NewLLMClassifier(stub, logger.NewNopLogger())
	})
	s := newSession()
	s.Stage = store.StageProductSearch
	s.VisitedStages = []store.Stage{store.StageWelcome, store.StageProductSearch}

	res, err := f.journey.Handle(context.Background(), s, "Quero ver geladeiras")
	require.NoError(t, err)

	assert.Equal(t, "Aqui estão as geladeiras.", res.Reply)
	assert.Equal(t, store.StageProductSearch, s.Stage)
	assert.Equal(t, []store.Stage{store.StageWelcome, store.StageProductSearch}, s.VisitedStages)
	assert.Len(t, s.History, 2)

	// The previous stage's grounded template was used
	assert.Contains(t, stub.lastPrompt(), "Geladeira Brastemp")
	assert.Contains(t, stub.lastPrompt(), "Quero ver geladeiras")
}

func TestEmptyRetrievalRendersEmptyDocument(t *testing.T) {
	f := newFixture(t)
	f.retriever.docs = nil
	s := newSession()

	res, err := f.journey.Handle(context.Background(), s, "Vocês vendem foguete?")
	require.NoError(t, err)

	assert.Equal(t, "", res.Document)
	assert.Equal(t, store.StageProductSearch, s.Stage)

	tmpl, err := prompt.DefaultRegistry().Get(store.StageProductSearch)
	require.NoError(t, err)
	want, err := tmpl.Render(map[string]string{prompt.VarQuestion: "Vocês vendem foguete?", prompt.VarDocument: ""})
	require.NoError(t, err)
	assert.Equal(t, want, f.llm.lastPrompt())
}

// --- properties ---

func TestHistoryGrowsByTwoOnSuccess(t *testing.T) {
	f := newFixture(t)
	s := newSession()

	for i, q := range []string{"Oi", "Tem geladeira?", "Qual o preço?"} {
		_, err := f.journey.Handle(context.Background(), s, q)
		require.NoError(t, err)
		assert.Len(t, s.History, 2*(i+1))
	}

	assert.Equal(t, store.RoleUser, s.History[4].Role)
	assert.Equal(t, "Qual o preço?", s.History[4].Content)
	assert.Equal(t, store.RoleAssistant, s.History[5].Role)

	// Third call got the four prior turns plus the rendered prompt
	require.Len(t, f.llm.chatCalls, 3)
	assert.Len(t, f.llm.chatCalls[2], 5)
}

func TestFatalFailuresAppendOnlyTheUserTurn(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *fixture)
		target interface{}
	}{
		{
			name:   "retrieval",
			setup:  func(f *fixture) { f.retriever.err = errors.New("index offline") },
			target: new(*retrieval.RetrievalError),
		},
		{
			name:   "classification",
			setup:  func(f *fixture) { f.classifier.err = &classifier.ClassificationError{Err: errors.New("timeout")} },
			target: new(*classifier.ClassificationError),
		},
		{
			name:   "classification without typed error",
			setup:  func(f *fixture) { f.classifier.err = errors.New("raw failure") },
			target: new(*classifier.ClassificationError),
		},
		{
			name: "generation",
			setup: func(f *fixture) {
				f.classifier.stage = store.StageCollectInfo
				f.llm.chatErr = &llm.TransportError{Provider: "ollama", Retryable: true, Err: errors.New("deadline")}
			},
			target: new(*GenerationError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			s := newSession()
			s.AppendTurn(store.RoleUser, "Oi", time.Now())
			s.AppendTurn(store.RoleAssistant, "Olá!", time.Now())

			_, err := f.journey.Handle(context.Background(), s, "Quero comprar")
			require.Error(t, err)
			assert.ErrorAs(t, err, tt.target)

			require.Len(t, s.History, 3)
			assert.Equal(t, store.RoleUser, s.History[2].Role)
			assert.Equal(t, store.StageWelcome, s.Stage)
			assert.Equal(t, []store.Stage{store.StageWelcome}, s.VisitedStages)
			assert.Empty(t, f.publisher.events)

			// The session stays usable
			*f.retriever = stubRetriever{docs: catalogDocs}
			*f.classifier = stubClassifier{stage: store.StageProductSearch}
			f.llm.chatErr = nil
			_, err = f.journey.Handle(context.Background(), s, "Tem geladeira?")
			require.NoError(t, err)
			assert.Len(t, s.History, 5)
		})
	}
}

func TestRetrievalFailureSkipsGeneration(t *testing.T) {
	f := newFixture(t)
	f.retriever.err = errors.New("connection refused")

	_, err := f.journey.Handle(context.Background(), newSession(), "Tem geladeira?")
	require.Error(t, err)
	assert.Empty(t, f.llm.chatCalls)
}

func TestGenerationFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.llm.chatErr = &llm.TransportError{Provider: "openai", StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}

	_, err := f.journey.Handle(context.Background(), newSession(), "Oi")
	assert.True(t, llm.IsRetryable(err))
}

func TestStableClassifierGivesNoExtraMutation(t *testing.T) {
	f := newFixture(t)
	f.classifier.stage = store.StageProductQA
	s := newSession()

	_, err := f.journey.Handle(context.Background(), s, "Qual a voltagem?")
	require.NoError(t, err)
	afterFirst := append([]store.Stage(nil), s.VisitedStages...)

	res, err := f.journey.Handle(context.Background(), s, "Qual a voltagem?")
	require.NoError(t, err)
	assert.False(t, res.Transitioned)
	assert.Equal(t, afterFirst, s.VisitedStages)
	assert.Len(t, f.publisher.events, 1)
}

func TestCurrentStageAlwaysValid(t *testing.T) {
	f := newFixture(t)
	s := newSession()
	s.Stage = ""
	s.VisitedStages = nil
	f.classifier.stage = store.Stage("Checkout")

	_, err := f.journey.Handle(context.Background(), s, "Oi")
	require.NoError(t, err)
	assert.True(t, s.Stage.Valid())
	assert.Equal(t, store.StageWelcome, s.Stage)
}

func TestStrictPolicyRejectsIllegalJump(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.State = state.NewManager(state.Strict, logger.NewNopLogger())
	})
	f.classifier.stage = store.StageConfirmPurchase
	s := newSession()

	res, err := f.journey.Handle(context.Background(), s, "Finaliza aí")
	require.NoError(t, err)
	assert.Equal(t, store.StageWelcome, s.Stage)
	assert.False(t, res.Transitioned)
	assert.NotEmpty(t, res.Reply)
}

func TestPublishFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("nats down")

	res, err := f.journey.Handle(context.Background(), newSession(), "Tem geladeira?")
	require.NoError(t, err)
	assert.True(t, res.Transitioned)
}

func TestSingleModeSkipsClassifier(t *testing.T) {
	f := newFixture(t)
	s := newSession()
	s.Mode = store.ModeSingle

	res, err := f.journey.Handle(context.Background(), s, "Quero uma geladeira")
	require.NoError(t, err)

	assert.Equal(t, 0, f.classifier.calls)
	assert.Equal(t, 1, f.retriever.calls)
	assert.Equal(t, store.StageWelcome, s.Stage)
	assert.Len(t, s.History, 2)
	assert.Contains(t, res.Document, "Documento 1 (Texto):")
	assert.Contains(t, f.llm.lastPrompt(), "Geladeira Brastemp")
	assert.Contains(t, f.llm.lastPrompt(), "Quero uma geladeira")
}

// --- end session ---

func TestEndSessionRoundTrip(t *testing.T) {
	sink := transcript.NewCSVSink(t.TempDir())
	f := newFixture(t, func(d *Dependencies) { d.Sink = sink })
	s := newSession()

	for _, q := range []string{"Oi", "Tem geladeira?"} {
		_, err := f.journey.Handle(context.Background(), s, q)
		require.NoError(t, err)
	}
	snapshot := append([]store.Turn(nil), s.History...)

	require.NoError(t, f.journey.EndSession(context.Background(), s))
	assert.Empty(t, s.History)
	assert.Equal(t, store.StageProductSearch, s.Stage, "stage is kept without ResetOnEnd")

	records, err := transcript.ReadCSVFile(sink.Path(s.ID))
	require.NoError(t, err)
	require.Len(t, records, len(snapshot))
	for i := range snapshot {
		assert.Equal(t, snapshot[i].Role, records[i].Turn.Role)
		assert.Equal(t, snapshot[i].Content, records[i].Turn.Content)
	}

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, events.TypeSessionEnded, last.EventType())
	assert.Equal(t, 4, last.Payload()["turns"])
}

func TestEndSessionWithReset(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) { d.ResetOnEnd = true })
	s := newSession()
	_, err := f.journey.Handle(context.Background(), s, "Tem geladeira?")
	require.NoError(t, err)
	require.Equal(t, store.StageProductSearch, s.Stage)

	require.NoError(t, f.journey.EndSession(context.Background(), s))
	assert.Equal(t, store.StageWelcome, s.Stage)
	assert.Equal(t, []store.Stage{store.StageWelcome}, s.VisitedStages)
}

type failingSink struct{}

func (failingSink) Persist(context.Context, string, []store.Turn) error {
	return errors.New("disk full")
}

func TestEndSessionSinkFailureKeepsHistory(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) { d.Sink = failingSink{} })
	s := newSession()
	_, err := f.journey.Handle(context.Background(), s, "Oi")
	require.NoError(t, err)

	err = f.journey.EndSession(context.Background(), s)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "disk full"))
	assert.Len(t, s.History, 2)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, metrics.OutcomeRetrievalError, outcomeOf(&retrieval.RetrievalError{Err: errors.New("x")}))
	assert.Equal(t, metrics.OutcomeClassifierError, outcomeOf(&classifier.ClassificationError{Err: errors.New("x")}))
	assert.Equal(t, metrics.OutcomeTemplateError, outcomeOf(&prompt.TemplateBindingError{Variable: "document"}))
	assert.Equal(t, metrics.OutcomeGenerationError, outcomeOf(&GenerationError{Err: errors.New("x")}))
	assert.Equal(t, "error", outcomeOf(errors.New("other")))
}
