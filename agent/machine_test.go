package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tbxark/leadagent/types"
)

func completeState() *State {
	state := NewState("m")
	for _, name := range types.AllFields {
		state.Fields.Set(name, string(name))
	}
	return state
}

func TestTransitionGuards(t *testing.T) {
	m := NewMachine(nil)
	cases := []struct {
		name  string
		state func() *State
		to    types.Phase
		ok    bool
	}{
		{"collecting to ready with missing", func() *State { return NewState("m") }, types.PhaseReadyToSave, false},
		{"collecting to ready when complete", completeState, types.PhaseReadyToSave, true},
		{"collecting to saved", completeState, types.PhaseSaved, false},
		{"ready to saved", func() *State { s := completeState(); s.Phase = types.PhaseReadyToSave; return s }, types.PhaseSaved, true},
		{"saved to collecting", func() *State { s := completeState(); s.Phase = types.PhaseSaved; return s }, types.PhaseCollecting, false},
		{"saved to saved", func() *State { s := completeState(); s.Phase = types.PhaseSaved; return s }, types.PhaseSaved, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := tc.state()
			before := state.Phase
			err := m.Transition(state, tc.to)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if state.Phase != tc.to {
					t.Errorf("phase = %s, want %s", state.Phase, tc.to)
				}
				return
			}
			if !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("expected ErrIllegalTransition, got %v", err)
			}
			if state.Phase != before {
				t.Errorf("phase changed on illegal transition: %s", state.Phase)
			}
		})
	}
}

func TestAdvanceCollectingKeepsReply(t *testing.T) {
	calls := 0
	m := NewMachine(SinkFunc(func(ctx context.Context, lead types.LeadRecord) error {
		calls++
		return nil
	}))
	state := NewState("m")
	if got, _ := m.Advance(context.Background(), state, "What's your name?", nil); got != "What's your name?" {
		t.Errorf("reply = %q", got)
	}
	if state.Phase != types.PhaseCollecting || calls != 0 {
		t.Errorf("collecting state should wait: phase=%s calls=%d", state.Phase, calls)
	}
}

func TestAdvanceSavesExactlyOnce(t *testing.T) {
	calls := 0
	m := NewMachine(SinkFunc(func(ctx context.Context, lead types.LeadRecord) error {
		calls++
		return nil
	}))
	state := completeState()
	if got, _ := m.Advance(context.Background(), state, "candidate", nil); got != SavedMessage {
		t.Errorf("reply = %q", got)
	}
	if got, _ := m.Advance(context.Background(), state, "later", nil); got != "later" {
		t.Errorf("saved state should pass the reply through, got %q", got)
	}
	if calls != 1 || !state.Saved() {
		t.Errorf("calls=%d phase=%s", calls, state.Phase)
	}
}

func TestAdvanceWithoutSink(t *testing.T) {
	state := completeState()
	if got, _ := NewMachine(nil).Advance(context.Background(), state, "x", nil); got != SavedMessage || !state.Saved() {
		t.Errorf("missing sink should still complete the lifecycle: %q %s", got, state.Phase)
	}
}

func TestAdvanceResumesReadyState(t *testing.T) {
	calls := 0
	m := NewMachine(SinkFunc(func(ctx context.Context, lead types.LeadRecord) error {
		calls++
		return nil
	}))
	state := completeState()
	state.Phase = types.PhaseReadyToSave
	if _, err := m.Advance(context.Background(), state, "x", nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if calls != 1 || !state.Saved() {
		t.Errorf("ready state should be saved: calls=%d phase=%s", calls, state.Phase)
	}
}

func TestAdvanceCheckpointsBeforeSink(t *testing.T) {
	var order []string
	var leadIDs []string
	m := NewMachine(SinkFunc(func(ctx context.Context, lead types.LeadRecord) error {
		order = append(order, "sink")
		leadIDs = append(leadIDs, lead.ID)
		return nil
	}), WithIDGenerator(func() string { return "lead-7" }))
	state := completeState()
	_, err := m.Advance(context.Background(), state, "x", func(ctx context.Context, ready *State) error {
		order = append(order, "checkpoint")
		if ready.Phase != types.PhaseReadyToSave || ready.LeadID != "lead-7" || ready.CapturedAt.IsZero() {
			t.Errorf("checkpoint got phase=%s lead=%q captured=%v", ready.Phase, ready.LeadID, ready.CapturedAt)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if diff := cmp.Diff([]string{"checkpoint", "sink"}, order); diff != "" {
		t.Errorf("call order mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceCheckpointFailureSkipsSink(t *testing.T) {
	calls := 0
	m := NewMachine(SinkFunc(func(ctx context.Context, lead types.LeadRecord) error {
		calls++
		return nil
	}))
	state := completeState()
	storeDown := errors.New("store down")
	_, err := m.Advance(context.Background(), state, "x", func(ctx context.Context, ready *State) error {
		return storeDown
	})
	if !errors.Is(err, storeDown) {
		t.Fatalf("expected checkpoint error, got %v", err)
	}
	if calls != 0 || state.Saved() {
		t.Errorf("sink must not run after a failed checkpoint: calls=%d phase=%s", calls, state.Phase)
	}
}

func TestAdvanceReusesLeadID(t *testing.T) {
	var ids []string
	m := NewMachine(SinkFunc(func(ctx context.Context, lead types.LeadRecord) error {
		ids = append(ids, lead.ID)
		return nil
	}), WithIDGenerator(func() string { return "fresh" }))
	state := completeState()
	state.Phase = types.PhaseReadyToSave
	state.LeadID = "picked-earlier"
	if _, err := m.Advance(context.Background(), state, "x", nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if diff := cmp.Diff([]string{"picked-earlier"}, ids); diff != "" {
		t.Errorf("lead id mismatch (-want +got):\n%s", diff)
	}
}
