package agent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/leadagent/testutil"
	"go.uber.org/goleak"
)

func drain(iter *adk.AsyncIterator[*adk.AgentEvent]) []*adk.AgentEvent {
	var events []*adk.AgentEvent
	for {
		event, ok := iter.Next()
		if !ok {
			return events
		}
		events = append(events, event)
	}
}

func TestAgentRun(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, testutil.Text(`{"property_type":"villa"}`), testutil.Text("A villa, lovely! Which area?"), &recordingSink{})
	a := NewAgent("lead", "captures real-estate leads", h.service)

	if a.Name(context.Background()) != "lead" || a.Description(context.Background()) == "" {
		t.Fatal("agent metadata not set")
	}

	ctx := WithStateKey(context.Background(), "adk")
	events := drain(a.Run(ctx, &adk.AgentInput{Messages: []adk.Message{schema.UserMessage("I want a villa")}}))
	if len(events) != 1 || events[0].Err != nil {
		t.Fatalf("unexpected events: %+v", events)
	}
	msg := events[0].Output.MessageOutput.Message
	if msg.Content != "A villa, lovely! Which area?" || msg.Role != schema.Assistant {
		t.Errorf("message = %+v", msg)
	}
	state, _ := h.service.State(context.Background(), "adk")
	if v, _ := state.Fields.Get("property_type"); v != "villa" {
		t.Errorf("agent run should update the session, got %q", v)
	}
}

func TestAgentRunWithoutMessages(t *testing.T) {
	h := newHarness(t, testutil.Text(`{}`), testutil.Text("hi"), &recordingSink{})
	a := NewAgent("lead", "", h.service)
	events := drain(a.Run(context.Background(), &adk.AgentInput{}))
	if len(events) != 1 || events[0].Err == nil {
		t.Fatalf("expected one error event, got %+v", events)
	}
}
