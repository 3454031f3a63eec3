package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbxark/leadagent/config"
	"github.com/tbxark/leadagent/sink"
	"github.com/tbxark/leadagent/types"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.LLM.APIKey = ""
	cfg.Session.RedisURL = ""
	cfg.Sink.DSN = filepath.Join(dir, "leads.db")
	cfg.Sink.CSVPath = filepath.Join(dir, "leads.csv")
	cfg.Sink.JournalPath = filepath.Join(dir, "leads.ndjson")
	return cfg
}

func TestChatLoopOffline(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)
	a, err := newApp(ctx, cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	in := strings.NewReader("my email is asha@example.com\n/status\n/reset\n/status\n/quit\n")
	var out bytes.Buffer
	if err := chatLoop(ctx, a.service, "t", in, &out); err != nil {
		t.Fatalf("chat loop: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Assistant: What kind of place are you looking for?") {
		t.Errorf("expected the first canned question, got:\n%s", text)
	}
	if !strings.Contains(text, "asha@example.com") {
		t.Errorf("status should show the extracted email:\n%s", text)
	}
	if !strings.Contains(text, "Session cleared.") {
		t.Errorf("reset not acknowledged:\n%s", text)
	}
}

func TestBuildSinkStoresAndJournals(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)
	a, err := newApp(ctx, cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.journal == nil || a.sink == nil {
		t.Fatal("journal and sink should be wired")
	}

	lead := types.LeadRecord{
		ID: "wired-1", SessionID: "wired", PropertyType: "apartment", Budget: "50 lakhs",
		Location: "Chennai", Name: "Asha", Email: "asha@example.com", Phone: "8123456789",
		CapturedAt: time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC),
	}
	if err := a.sink.Save(ctx, lead); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	pending, err := sink.Pending(cfg.Sink.JournalPath)
	if err != nil || len(pending) != 0 {
		t.Errorf("pending = %v, %v", pending, err)
	}
	table, _ := sink.NewCSVTable(cfg.Sink.CSVPath)
	rows, err := table.Rows()
	if err != nil || len(rows) != 2 || rows[1][1] != "Asha" {
		t.Errorf("csv rows = %v, %v", rows, err)
	}
	repo, err := sink.NewSQLite(cfg.Sink.DSN, "IN")
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer repo.Close()
	stored, err := repo.Get(ctx, "wired-1")
	if err != nil || stored.PhoneE164 != "+918123456789" {
		t.Errorf("stored = %+v, %v", stored, err)
	}
}

func TestBuildSinkWithoutBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.DSN = ""
	cfg.Sink.CSVPath = ""
	a := &app{cfg: cfg}
	s, err := a.buildSink(context.Background())
	if err != nil || s != nil {
		t.Errorf("expected no sink, got %v %v", s, err)
	}
}
