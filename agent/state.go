package agent

import (
	"context"
	"time"

	"github.com/tbxark/leadagent/types"
)

// State is the per-session conversation state.
type State struct {
	SessionID string       `json:"session_id"`
	Phase     types.Phase  `json:"phase"`
	Fields    types.Fields `json:"fields"`
	History   []types.Turn `json:"history"`
	LeadID    string       `json:"lead_id,omitempty"`
	// CapturedAt is fixed together with LeadID when the lead becomes ready.
	CapturedAt time.Time `json:"captured_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Phase:     types.PhaseCollecting,
	}
}

// Clone copies the state so callers can mutate it without touching the stored value.
func (s *State) Clone() *State {
	out := *s
	out.History = append([]types.Turn(nil), s.History...)
	return &out
}

func (s *State) Saved() bool {
	return s.Phase == types.PhaseSaved
}

// LastUserInput returns the text of the most recent user turn.
func (s *State) LastUserInput() (string, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == types.RoleUser {
			return s.History[i].Text, true
		}
	}
	return "", false
}

func (s *State) appendTurn(role types.Role, text string, at time.Time) {
	s.History = append(s.History, types.Turn{Role: role, Text: text, At: at})
}

// StateReadWriter provides read/write access to state using context for routing.
type StateReadWriter interface {
	Read(ctx context.Context) (*State, error)
	Write(ctx context.Context, state *State) error
	Remove(ctx context.Context) error
}

type stateKeyContext struct{}

const DefaultSessionID = "default"

// WithStateKey sets a routing key for state storage in the context.
func WithStateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stateKeyContext{}, key)
}

// StateKeyFromContext gets the routing key from the context.
func StateKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(stateKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

func stateKeyOrDefault(ctx context.Context) string {
	key, ok := StateKeyFromContext(ctx)
	if ok && key != "" {
		return key
	}
	return DefaultSessionID
}

const stateNamespace = "leadagent:session"

// StateStore keeps State values in a Cache, one per session key.
type StateStore struct {
	store Store[*State]
}

func NewStateStore(core Cache[*State]) *StateStore {
	return &StateStore{store: NewStore(core, stateNamespace, stateKeyOrDefault)}
}

func NewMemoryStateStore(ttl time.Duration) *StateStore {
	return NewStateStore(NewMemoryCache[*State](ttl))
}

// Read returns the stored state, or a fresh one when the session is unknown.
func (s *StateStore) Read(ctx context.Context) (*State, error) {
	state, ok, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || state == nil {
		return NewState(stateKeyOrDefault(ctx)), nil
	}
	state = state.Clone()
	if state.Phase == "" {
		state.Phase = types.PhaseCollecting
	}
	return state, nil
}

func (s *StateStore) Write(ctx context.Context, state *State) error {
	if state.Phase == "" {
		state.Phase = types.PhaseCollecting
	}
	return s.store.Set(ctx, state)
}

func (s *StateStore) Remove(ctx context.Context) error {
	return s.store.Del(ctx)
}

var _ StateReadWriter = (*StateStore)(nil)
