package sink

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbxark/leadagent/types"
)

type funcSink func(ctx context.Context, lead types.LeadRecord) error

func (f funcSink) Save(ctx context.Context, lead types.LeadRecord) error { return f(ctx, lead) }

func testLead(id string) types.LeadRecord {
	return types.LeadRecord{
		ID:           id,
		SessionID:    "session-" + id,
		PropertyType: "apartment",
		Budget:       "50 lakhs",
		Location:     "Chennai",
		Name:         "Asha",
		Email:        "asha@example.com",
		Phone:        "8123456789",
		CapturedAt:   time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC),
	}
}

func TestFanoutIsolatesFailures(t *testing.T) {
	var stored atomic.Int32
	ok := funcSink(func(ctx context.Context, lead types.LeadRecord) error {
		stored.Add(1)
		return nil
	})
	down := errors.New("sheet unavailable")
	failing := funcSink(func(ctx context.Context, lead types.LeadRecord) error { return down })

	f := NewFanout(
		Backend{Name: "records", Sink: ok},
		Backend{Name: "sheet", Sink: failing},
		Backend{Name: "unset"},
	)
	if f.Len() != 2 {
		t.Fatalf("nil backends should be dropped, have %d", f.Len())
	}
	err := f.Save(context.Background(), testLead("1"))
	if !errors.Is(err, down) {
		t.Fatalf("expected joined sheet error, got %v", err)
	}
	if !strings.Contains(err.Error(), "sheet:") {
		t.Errorf("error should name the backend: %v", err)
	}
	if stored.Load() != 1 {
		t.Errorf("healthy backend should still store the lead")
	}
}

func TestFanoutJoinsAllFailures(t *testing.T) {
	e1, e2 := errors.New("db down"), errors.New("sheet down")
	f := NewFanout(
		Backend{Name: "records", Sink: funcSink(func(ctx context.Context, lead types.LeadRecord) error { return e1 })},
		Backend{Name: "sheet", Sink: funcSink(func(ctx context.Context, lead types.LeadRecord) error { return e2 })},
	)
	err := f.Save(context.Background(), testLead("2"))
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("both failures should be reported: %v", err)
	}
	if err := NewFanout().Save(context.Background(), testLead("3")); err != nil {
		t.Errorf("empty fanout should succeed: %v", err)
	}
}

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in, region, want string
	}{
		{"8123456789", "IN", "+918123456789"},
		{" 8123456789 ", "", "+918123456789"},
		{"+1 650-253-0000", "IN", "+16502530000"},
		{"call me maybe", "IN", "call me maybe"},
		{"12", "IN", "12"},
		{"  ", "IN", ""},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.in, tc.region); got != tc.want {
			t.Errorf("NormalizeE164(%q, %q) = %q, want %q", tc.in, tc.region, got, tc.want)
		}
	}
}
