package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/tbxark/leadagent/dialogue"
	"github.com/tbxark/leadagent/extract"
	"github.com/tbxark/leadagent/patch"
	"github.com/tbxark/leadagent/types"
)

type Request struct {
	State     *State `json:"state"`
	UserInput string `json:"user_input"`
	// Checkpoint, when set, persists a ready lead before it is handed to the sink.
	Checkpoint Checkpoint `json:"-"`
}

type Response struct {
	Message  string            `json:"message,omitempty"`
	State    *State            `json:"state,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LeadFlow runs one user turn: extract, merge, generate, then advance the lead machine.
type LeadFlow struct {
	extractor         extract.Extractor
	dialogueGenerator dialogue.Generator
	machine           *Machine
	now               func() time.Time
}

func NewLeadFlow(
	extractor extract.Extractor,
	dialogGen dialogue.Generator,
	machine *Machine,
) *LeadFlow {
	return &LeadFlow{
		extractor:         extractor,
		dialogueGenerator: dialogGen,
		machine:           machine,
		now:               time.Now,
	}
}

type FlowOptions struct {
	Extract  []extract.Option
	Dialogue []dialogue.GeneratorOption
	Machine  []MachineOption
	// ToolExtraction extracts with a forced tool call, falling back to the JSON prompt.
	ToolExtraction bool
}

func NewToolBasedLeadFlow(
	chatModel model.ToolCallingChatModel,
	sink Sink,
	opts FlowOptions,
) (*LeadFlow, error) {
	promptExtractor, err := extract.NewPromptExtractor(chatModel, opts.Extract...)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt extractor: %w", err)
	}
	var extractor extract.Extractor = promptExtractor
	if opts.ToolExtraction {
		toolExtractor, err := extract.NewToolBasedExtractor(chatModel, opts.Extract...)
		if err != nil {
			return nil, fmt.Errorf("failed to create tool-based extractor: %w", err)
		}
		extractor = extract.NewFailbackExtractor(toolExtractor, promptExtractor)
	}
	dialogueGen := dialogue.NewModelDialogueGenerator(chatModel, opts.Dialogue...)
	return NewLeadFlow(
		extractor,
		dialogueGen,
		NewMachine(sink, opts.Machine...),
	), nil
}

func (a *LeadFlow) Invoke(ctx context.Context, input *Request) (*Response, error) {
	if input == nil || input.State == nil {
		return nil, errors.New("lead flow: nil request state")
	}
	ctx = callbacks.EnsureRunInfo(ctx, "LeadFlow", "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"input":  input.UserInput,
		"phase":  string(input.State.Phase),
		"fields": input.State.Fields.Snapshot(),
	})
	response, err := a.runInternal(ctx, input)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}
	callbacks.OnEnd(ctx, map[string]any{
		"response": response.Message,
		"phase":    string(response.State.Phase),
	})
	return response, nil
}

func (a *LeadFlow) runInternal(ctx context.Context, input *Request) (*Response, error) {
	state := input.State
	if state.Phase == "" {
		state.Phase = types.PhaseCollecting
	}
	metadata := map[string]string{}
	state.appendTurn(types.RoleUser, input.UserInput, a.now())

	// extraction
	if state.Saved() {
		slog.Debug("Lead already saved, fields frozen", "session_id", state.SessionID)
	} else {
		utterance, _ := state.LastUserInput()
		slog.Debug("Extracting fields", "session_id", state.SessionID)
		extracted, err := a.extractor.Extract(ctx, utterance)
		if err != nil {
			slog.Warn("Field extraction failed", "session_id", state.SessionID, "error", err)
			metadata["extract_error"] = err.Error()
			extracted = types.Extraction{}
		}
		merged, ops, err := patch.Merge(state.Fields, extracted)
		if err != nil {
			slog.Warn("Field merge failed", "session_id", state.SessionID, "error", err)
			metadata["merge_error"] = err.Error()
		} else {
			state.Fields = merged
		}
		slog.Debug("Merged fields", "session_id", state.SessionID, "ops", len(ops), "missing", state.Fields.Missing())
	}

	// dialogue
	reply, err := a.dialogueGenerator.GenerateDialogue(ctx, &dialogue.Request{
		History: state.History,
		Fields:  state.Fields,
		Phase:   state.Phase,
	})
	if err != nil {
		slog.Warn("Reply generation failed", "session_id", state.SessionID, "error", err)
		metadata["generate_error"] = err.Error()
		reply = dialogue.FallbackMessage
	}

	// lead machine
	reply, err = a.machine.Advance(ctx, state, reply, input.Checkpoint)
	if err != nil {
		return nil, err
	}
	state.appendTurn(types.RoleAssistant, reply, a.now())
	state.UpdatedAt = a.now()
	metadata["phase"] = string(state.Phase)
	slog.Debug("Turn complete", "session_id", state.SessionID, "phase", state.Phase)

	return &Response{
		Message:  reply,
		State:    state,
		Metadata: metadata,
	}, nil
}
