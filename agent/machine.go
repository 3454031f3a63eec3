package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tbxark/leadagent/types"
)

// SavedMessage replaces the turn's reply once the lead has been handed to the sink.
const SavedMessage = "Perfect! Your information has been saved. Our team will reach out within 24 hours!"

var ErrIllegalTransition = errors.New("illegal phase transition")

// Machine owns the collecting -> ready_to_save -> saved lifecycle of a session.
type Machine struct {
	sink        Sink
	sinkTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

type MachineOption func(*Machine)

// WithSinkTimeout bounds the sink call. Zero disables the bound.
func WithSinkTimeout(d time.Duration) MachineOption {
	return func(m *Machine) { m.sinkTimeout = d }
}

func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

func WithIDGenerator(newID func() string) MachineOption {
	return func(m *Machine) { m.newID = newID }
}

func NewMachine(sink Sink, opts ...MachineOption) *Machine {
	m := &Machine{
		sink:        sink,
		sinkTimeout: 20 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Transition moves state to phase `to` if the lifecycle allows it.
func (m *Machine) Transition(state *State, to types.Phase) error {
	from := state.Phase
	switch {
	case from == types.PhaseCollecting && to == types.PhaseReadyToSave:
		if !state.Fields.Complete() {
			return fmt.Errorf("%w: %s -> %s with missing %v", ErrIllegalTransition, from, to, state.Fields.Missing())
		}
	case from == types.PhaseReadyToSave && to == types.PhaseSaved:
	default:
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	state.Phase = to
	return nil
}

// Checkpoint durably records a state before the sink is called.
type Checkpoint func(ctx context.Context, state *State) error

// Advance evaluates the state after a turn and returns the reply to show.
// A ready lead is saved in the same call; the sink outcome never changes
// the reply or the saved phase. The lead id and capture time are fixed and
// checkpointed before the sink runs, so a resumed ready state saves the
// same record. A checkpoint failure is returned and the sink is not called.
func (m *Machine) Advance(ctx context.Context, state *State, reply string, checkpoint Checkpoint) (string, error) {
	if state.Phase == types.PhaseCollecting && state.Fields.Complete() {
		if err := m.Transition(state, types.PhaseReadyToSave); err != nil {
			slog.Error("Lead transition failed", "session_id", state.SessionID, "error", err)
			return reply, nil
		}
		slog.Info("Lead complete", "session_id", state.SessionID)
	}
	if state.Phase != types.PhaseReadyToSave {
		return reply, nil
	}
	if state.LeadID == "" {
		state.LeadID = m.newID()
		state.CapturedAt = m.now()
	}
	if state.CapturedAt.IsZero() {
		state.CapturedAt = m.now()
	}

	lead, err := types.NewLeadRecord(state.LeadID, state.SessionID, state.Fields, state.CapturedAt)
	if err != nil {
		slog.Error("Build lead record failed", "session_id", state.SessionID, "error", err)
		return reply, nil
	}
	if checkpoint != nil {
		if err := checkpoint(ctx, state); err != nil {
			return reply, fmt.Errorf("checkpoint lead %s: %w", lead.ID, err)
		}
	}
	m.save(ctx, lead)

	if err := m.Transition(state, types.PhaseSaved); err != nil {
		slog.Error("Lead transition failed", "session_id", state.SessionID, "error", err)
		return reply, nil
	}
	return SavedMessage, nil
}

func (m *Machine) save(ctx context.Context, lead types.LeadRecord) {
	if m.sink == nil {
		slog.Warn("No lead sink configured, lead not persisted", "lead_id", lead.ID, "session_id", lead.SessionID)
		return
	}
	if m.sinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.sinkTimeout)
		defer cancel()
	}
	if err := m.sink.Save(ctx, lead); err != nil {
		slog.Error("Lead sink failed", "lead_id", lead.ID, "session_id", lead.SessionID, "error", err)
		return
	}
	slog.Info("Lead saved", "lead_id", lead.ID, "session_id", lead.SessionID)
}
