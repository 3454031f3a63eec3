package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TurnResult is what a caller sees after one user message.
type TurnResult struct {
	Reply        string             `json:"reply"`
	LeadComplete bool               `json:"lead_complete"`
	Collected    map[string]*string `json:"collected"`
}

// Service binds the lead flow to session storage and serializes turns per session.
type Service struct {
	flow   *LeadFlow
	states StateReadWriter
	locks  *KeyedMutex
}

func NewService(flow *LeadFlow, states StateReadWriter) *Service {
	return &Service{
		flow:   flow,
		states: states,
		locks:  NewKeyedMutex(),
	}
}

func normalizeSessionID(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return DefaultSessionID
	}
	return sessionID
}

// Turn processes one user message for a session. Only storage failures are returned.
func (s *Service) Turn(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	sessionID = normalizeSessionID(sessionID)
	ctx = WithStateKey(ctx, sessionID)

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	state, err := s.states.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	state.SessionID = sessionID

	resp, err := s.flow.Invoke(ctx, &Request{
		State:     state,
		UserInput: message,
		Checkpoint: func(ctx context.Context, ready *State) error {
			return s.states.Write(ctx, ready.Clone())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("run turn: %w", err)
	}
	if err := s.states.Write(ctx, resp.State); err != nil {
		return nil, fmt.Errorf("store session %q: %w", sessionID, err)
	}
	return &TurnResult{
		Reply:        resp.Message,
		LeadComplete: resp.State.Saved(),
		Collected:    resp.State.Fields.Snapshot(),
	}, nil
}

// Reset discards all state of a session. Unknown sessions are not an error.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	sessionID = normalizeSessionID(sessionID)
	ctx = WithStateKey(ctx, sessionID)

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.states.Remove(ctx); err != nil {
		return fmt.Errorf("reset session %q: %w", sessionID, err)
	}
	slog.Info("Session reset", "session_id", sessionID)
	return nil
}

// State returns a copy of the current state of a session.
func (s *Service) State(ctx context.Context, sessionID string) (*State, error) {
	sessionID = normalizeSessionID(sessionID)
	return s.states.Read(WithStateKey(ctx, sessionID))
}
