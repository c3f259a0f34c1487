package state

import (
	"errors"
	"fmt"

	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/store"
)

// Policy decides which proposed stages the machine accepts
type Policy int

const (
	// FlatAccept takes whatever the classifier proposes
	FlatAccept Policy = iota
	// Strict only allows moves listed in the adjacency table
	Strict
)

// ErrIllegalTransition is returned by Propose under the Strict policy
var ErrIllegalTransition = errors.New("illegal stage transition")

// adjacency lists the legal successors of each stage in strict mode.
// Staying in the current stage is always legal.
var adjacency = map[store.Stage][]store.Stage{
	store.StageWelcome:         {store.StageProductSearch, store.StageProductQA},
	store.StageProductSearch:   {store.StageProductQA, store.StageCollectInfo},
	store.StageProductQA:       {store.StageProductSearch, store.StageCollectInfo},
	store.StageCollectInfo:     {store.StageProductSearch, store.StageProductQA, store.StageConfirmPurchase},
	store.StageConfirmPurchase: {store.StageThankYou},
	store.StageThankYou:        {},
}

// Transition is a computed, not yet applied, stage change
type Transition struct {
	From    store.Stage
	To      store.Stage
	Changed bool
}

// Manager owns every mutation of Session.Stage and Session.VisitedStages
type Manager struct {
	policy Policy
	logger logger.ILogger
}

// NewManager creates a new state manager
func NewManager(policy Policy, logger logger.ILogger) *Manager {
	return &Manager{policy: policy, logger: logger}
}

// Propose computes the transition for a proposed stage without touching the session
func (m *Manager) Propose(session *store.Session, proposed store.Stage) (Transition, error) {
	if !proposed.Valid() {
		return Transition{}, fmt.Errorf("propose %q: %w", string(proposed), ErrIllegalTransition)
	}

	current := m.Current(session)
	t := Transition{From: current, To: proposed, Changed: proposed != current}
	if !t.Changed || m.policy == FlatAccept {
		return t, nil
	}

	if !CanTransition(current, proposed) {
		return Transition{}, fmt.Errorf("%s -> %s: %w", current, proposed, ErrIllegalTransition)
	}
	return t, nil
}

// Apply commits a transition computed by Propose. A no-change transition is a no-op.
func (m *Manager) Apply(session *store.Session, t Transition) {
	if !t.Changed {
		return
	}
	session.Stage = t.To
	if !session.HasVisited(t.To) {
		session.VisitedStages = append(session.VisitedStages, t.To)
	}
	m.logger.Info("State", "Stage transition", map[string]interface{}{
		"session_id": session.ID,
		"from":       string(t.From),
		"to":         string(t.To),
	})
}

// Current returns the session stage, repairing an unset value to Welcome
func (m *Manager) Current(session *store.Session) store.Stage {
	if !session.Stage.Valid() {
		session.Stage = store.StageWelcome
		if !session.HasVisited(store.StageWelcome) {
			session.VisitedStages = append([]store.Stage{store.StageWelcome}, session.VisitedStages...)
		}
	}
	return session.Stage
}

// Reset puts the session back into its initial state
func (m *Manager) Reset(session *store.Session) {
	session.Stage = store.StageWelcome
	session.VisitedStages = []store.Stage{store.StageWelcome}
}

// CanTransition reports whether from -> to is in the strict adjacency table
func CanTransition(from, to store.Stage) bool {
	if from == to {
		return true
	}
	for _, s := range adjacency[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a stage has no strict-mode successors
func IsTerminal(s store.Stage) bool {
	next, ok := adjacency[s]
	return ok && len(next) == 0
}
