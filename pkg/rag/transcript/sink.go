package transcript

import (
	"context"
	"errors"
	"fmt"

	"marketplace-assistant-be/pkg/store"
)

// Sink persists a finished conversation keyed by session ID
type Sink interface {
	Persist(ctx context.Context, sessionID string, turns []store.Turn) error
}

// StateRecorder is implemented by sinks that also keep the final journey state
// (stage and visited stages) next to the transcript.
type StateRecorder interface {
	RecordState(ctx context.Context, session *store.Session) error
}

// MultiSink writes to every sink and joins their errors
type MultiSink []Sink

func (m MultiSink) Persist(ctx context.Context, sessionID string, turns []store.Turn) error {
	var errs []error
	for _, s := range m {
		if err := s.Persist(ctx, sessionID, turns); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordState(ctx context.Context, session *store.Session) error {
	var errs []error
	for _, s := range m {
		if r, ok := s.(StateRecorder); ok {
			if err := r.RecordState(ctx, session); err != nil {
				errs = append(errs, fmt.Errorf("%T: %w", s, err))
			}
		}
	}
	return errors.Join(errs...)
}

// NopSink drops transcripts
type NopSink struct{}

func (NopSink) Persist(context.Context, string, []store.Turn) error { return nil }
