package journey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/events"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/metrics"
	"marketplace-assistant-be/pkg/rag/classifier"
	"marketplace-assistant-be/pkg/rag/prompt"
	"marketplace-assistant-be/pkg/rag/response"
	"marketplace-assistant-be/pkg/rag/retrieval"
	"marketplace-assistant-be/pkg/rag/state"
	"marketplace-assistant-be/pkg/rag/transcript"
	"marketplace-assistant-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "marketplace-assistant/journey"

// GenerationError is returned when the final reply could not be produced
type GenerationError = response.GenerationError

// Result is the outcome of one successful turn
type Result struct {
	Reply        string
	Document     string // formatted grounding, "" when nothing matched
	Stage        store.Stage
	Transitioned bool
}

// Dependencies wires a Journey. Registry, Classifier, Retriever and LLM are required.
type Dependencies struct {
	Registry   *prompt.Registry
	Classifier classifier.Classifier
	Retriever  retrieval.Retriever
	LLM        llm.LLMProvider

	State     *state.Manager
	Sink      transcript.Sink
	Publisher events.Publisher
	Metrics   *metrics.JourneyMetrics
	Logger    logger.ILogger

	// ResetOnEnd also puts the stage machine back to Welcome when a session ends
	ResetOnEnd bool
}

// Journey runs the staged marketplace conversation for one turn at a time.
// It holds no per-session state; callers serialize turns on the same session.
type Journey struct {
	registry   *prompt.Registry
	classifier classifier.Classifier
	retriever  retrieval.Retriever
	generator  *response.Generator
	state      *state.Manager
	sink       transcript.Sink
	publisher  events.Publisher
	metrics    *metrics.JourneyMetrics
	tracer     trace.Tracer
	logger     logger.ILogger
	resetOnEnd bool
	now        func() time.Time
}

func New(d Dependencies) *Journey {
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	if d.State == nil {
		d.State = state.NewManager(state.FlatAccept, d.Logger)
	}
	if d.Sink == nil {
		d.Sink = transcript.NopSink{}
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}

	return &Journey{
		registry:   d.Registry,
		classifier: d.Classifier,
		retriever:  d.Retriever,
		generator:  response.NewGenerator(d.LLM, d.Logger),
		state:      d.State,
		sink:       d.Sink,
		publisher:  d.Publisher,
		metrics:    d.Metrics,
		tracer:     otel.Tracer(tracerName),
		logger:     d.Logger,
		resetOnEnd: d.ResetOnEnd,
		now:        time.Now,
	}
}

// Handle processes one user message. On any failure after the user turn is
// appended, the history keeps that turn and nothing else changes.
func (j *Journey) Handle(ctx context.Context, s *store.Session, question string) (*Result, error) {
	if s.Mode == store.ModeSingle {
		return j.handleSingle(ctx, s, question)
	}

	ctx, span := j.tracer.Start(ctx, "journey.handle", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("journey.mode", store.ModeMain),
	))
	defer span.End()
	start := j.now()

	prior := append([]store.Turn(nil), s.History...)
	s.AppendTurn(store.RoleUser, question, j.now())

	history := append([]store.Turn(nil), s.History...)
	visited := append([]store.Stage(nil), s.VisitedStages...)

	var (
		docs         []store.Document
		proposed     store.Stage
		unrecognized *classifier.UnrecognizedStageError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = j.retrieve(gctx, question)
		return err
	})
	g.Go(func() error {
		var err error
		proposed, err = j.classify(gctx, history, visited)
		if errors.As(err, &unrecognized) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		j.fail(span, store.ModeMain, s.Stage, err, start)
		return nil, err
	}

	t := j.transition(s, proposed, unrecognized)

	tmpl, err := j.registry.Get(t.To)
	if err != nil {
		j.fail(span, store.ModeMain, s.Stage, err, start)
		return nil, err
	}
	document := retrieval.FormatDocuments(docs)
	rendered, err := tmpl.Render(map[string]string{
		prompt.VarQuestion: question,
		prompt.VarDocument: document,
	})
	if err != nil {
		j.fail(span, store.ModeMain, s.Stage, err, start)
		return nil, err
	}

	reply, err := j.generate(ctx, prior, rendered)
	if err != nil {
		j.fail(span, store.ModeMain, s.Stage, err, start)
		return nil, err
	}

	// The stage only moves once the reply exists, so visited never runs ahead of the transcript
	j.state.Apply(s, t)
	s.AppendTurn(store.RoleAssistant, reply, j.now())

	if t.Changed {
		j.onTransition(ctx, s, t)
	}

	outcome := metrics.OutcomeOK
	if unrecognized != nil {
		outcome = metrics.OutcomeUnrecognizedKept
	}
	span.SetAttributes(
		attribute.String("journey.stage", string(s.Stage)),
		attribute.Bool("journey.transitioned", t.Changed),
	)
	j.observe(store.ModeMain, s.Stage, outcome, start)

	return &Result{
		Reply:        reply,
		Document:     document,
		Stage:        s.Stage,
		Transitioned: t.Changed,
	}, nil
}

// handleSingle is the one-prompt flow: retrieve, render the main template, generate.
// The stage machine is not consulted.
func (j *Journey) handleSingle(ctx context.Context, s *store.Session, question string) (*Result, error) {
	ctx, span := j.tracer.Start(ctx, "journey.handle", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("journey.mode", store.ModeSingle),
	))
	defer span.End()
	start := j.now()

	prior := append([]store.Turn(nil), s.History...)
	s.AppendTurn(store.RoleUser, question, j.now())

	docs, err := j.retrieve(ctx, question)
	if err != nil {
		j.fail(span, store.ModeSingle, s.Stage, err, start)
		return nil, err
	}

	tmpl, err := j.registry.Main()
	if err != nil {
		j.fail(span, store.ModeSingle, s.Stage, err, start)
		return nil, err
	}
	document := retrieval.FormatDocuments(docs)
	rendered, err := tmpl.Render(map[string]string{
		prompt.VarQuestion: question,
		prompt.VarDocument: document,
	})
	if err != nil {
		j.fail(span, store.ModeSingle, s.Stage, err, start)
		return nil, err
	}

	reply, err := j.generate(ctx, prior, rendered)
	if err != nil {
		j.fail(span, store.ModeSingle, s.Stage, err, start)
		return nil, err
	}
	s.AppendTurn(store.RoleAssistant, reply, j.now())

	j.observe(store.ModeSingle, s.Stage, metrics.OutcomeOK, start)
	return &Result{Reply: reply, Document: document, Stage: s.Stage}, nil
}

// transition turns the classifier verdict into a transition. Unrecognized
// replies and illegal moves keep the current stage.
func (j *Journey) transition(s *store.Session, proposed store.Stage, unrecognized *classifier.UnrecognizedStageError) state.Transition {
	current := j.state.Current(s)
	keep := state.Transition{From: current, To: current}

	if unrecognized != nil {
		j.logger.Warn("Journey", "Classifier returned an unknown stage, keeping current", map[string]interface{}{
			"session_id": s.ID,
			"raw":        unrecognized.Raw,
			"stage":      string(current),
		})
		return keep
	}

	t, err := j.state.Propose(s, proposed)
	if err != nil {
		j.logger.Warn("Journey", "Transition rejected, keeping current", map[string]interface{}{
			"session_id": s.ID,
			"from":       string(current),
			"proposed":   string(proposed),
			"error":      err.Error(),
		})
		return keep
	}
	return t
}

func (j *Journey) retrieve(ctx context.Context, query string) ([]store.Document, error) {
	ctx, span := j.tracer.Start(ctx, "journey.retrieve")
	defer span.End()

	docs, err := j.retriever.Retrieve(ctx, query)
	if err != nil {
		var re *retrieval.RetrievalError
		if !errors.As(err, &re) {
			err = &retrieval.RetrievalError{Op: "search", Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("retrieval.documents", len(docs)))
	if j.metrics != nil {
		j.metrics.RetrievedDocuments.Observe(float64(len(docs)))
	}
	return docs, nil
}

func (j *Journey) classify(ctx context.Context, history []store.Turn, visited []store.Stage) (store.Stage, error) {
	ctx, span := j.tracer.Start(ctx, "journey.classify")
	defer span.End()

	st, err := j.classifier.Classify(ctx, history, visited)
	if err != nil {
		var unrecognized *classifier.UnrecognizedStageError
		var ce *classifier.ClassificationError
		switch {
		case errors.As(err, &unrecognized):
			span.SetAttributes(attribute.String("classifier.raw", unrecognized.Raw))
		case !errors.As(err, &ce):
			err = &classifier.ClassificationError{Err: err}
			fallthrough
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "classification failed")
		}
		return "", err
	}

	span.SetAttributes(attribute.String("classifier.stage", string(st)))
	return st, nil
}

func (j *Journey) generate(ctx context.Context, prior []store.Turn, rendered string) (string, error) {
	ctx, span := j.tracer.Start(ctx, "journey.generate", trace.WithAttributes(
		attribute.Int("generate.context_turns", len(prior)),
	))
	defer span.End()

	reply, err := j.generator.Generate(ctx, prior, rendered)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}
	return reply, nil
}

// EndSession persists the transcript and clears the history. Stage and visited
// stages survive unless the journey was built with ResetOnEnd.
// If the sink fails the history is left untouched.
func (j *Journey) EndSession(ctx context.Context, s *store.Session) error {
	turns := append([]store.Turn(nil), s.History...)
	if err := j.sink.Persist(ctx, s.ID, turns); err != nil {
		return fmt.Errorf("persist transcript of session %s: %w", s.ID, err)
	}

	if r, ok := j.sink.(transcript.StateRecorder); ok {
		if err := r.RecordState(ctx, s); err != nil {
			j.logger.Warn("Journey", "Failed to record final state", map[string]interface{}{
				"session_id": s.ID,
				"error":      err.Error(),
			})
		}
	}

	finalStage := s.Stage
	s.History = []store.Turn{}
	s.UpdatedAt = j.now()
	if j.resetOnEnd {
		j.state.Reset(s)
	}

	j.logger.Info("Journey", "Session ended", map[string]interface{}{
		"session_id":  s.ID,
		"turns":       len(turns),
		"final_stage": string(finalStage),
		"reset":       j.resetOnEnd,
	})
	if j.metrics != nil {
		j.metrics.SessionsEnded.Inc()
	}
	j.publish(ctx, events.NewSessionEnded(s.ID, string(finalStage), len(turns), j.now()))
	return nil
}

func (j *Journey) onTransition(ctx context.Context, s *store.Session, t state.Transition) {
	if j.metrics != nil {
		j.metrics.Transitions.WithLabelValues(string(t.From), string(t.To)).Inc()
	}
	visited := make([]string, len(s.VisitedStages))
	for i, v := range s.VisitedStages {
		visited[i] = string(v)
	}
	j.publish(ctx, events.NewStageChanged(s.ID, string(t.From), string(t.To), visited, j.now()))
}

// publish never fails a turn
func (j *Journey) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := j.publisher.Publish(ctx, e); err != nil {
		j.logger.Warn("Journey", "Failed to publish event", map[string]interface{}{
			"type":  e.EventType(),
			"error": err.Error(),
		})
	}
}

func (j *Journey) fail(span trace.Span, mode string, stage store.Stage, err error, start time.Time) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	j.logger.Error("Journey", "Turn failed", map[string]interface{}{
		"mode":  mode,
		"stage": string(stage),
		"error": err,
	})
	j.observe(mode, stage, outcomeOf(err), start)
}

func (j *Journey) observe(mode string, stage store.Stage, outcome string, start time.Time) {
	if j.metrics == nil {
		return
	}
	j.metrics.Turns.WithLabelValues(mode, string(stage), outcome).Inc()
	j.metrics.TurnDuration.WithLabelValues(mode).Observe(j.now().Sub(start).Seconds())
}

func outcomeOf(err error) string {
	var (
		re *retrieval.RetrievalError
		ce *classifier.ClassificationError
		te *prompt.TemplateBindingError
		ue *prompt.UnknownStageError
		ge *GenerationError
	)
	switch {
	case errors.As(err, &re):
		return metrics.OutcomeRetrievalError
	case errors.As(err, &ce):
		return metrics.OutcomeClassifierError
	case errors.As(err, &te), errors.As(err, &ue):
		return metrics.OutcomeTemplateError
	case errors.As(err, &ge):
		return metrics.OutcomeGenerationError
	}
	return "error"
}
