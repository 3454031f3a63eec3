package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/leadagent/types"
)

type JournalStatus string

const (
	JournalPending JournalStatus = "pending"
	JournalOK      JournalStatus = "ok"
	JournalFailed  JournalStatus = "failed"
)

// JournalEntry is one line of the lead journal.
type JournalEntry struct {
	Status JournalStatus    `json:"status"`
	At     time.Time        `json:"at"`
	Lead   types.LeadRecord `json:"lead"`
	Error  string           `json:"error,omitempty"`
}

// JournalSink records every lead in an append-only NDJSON file before and
// after handing it to the next sink, so leads whose save failed can be
// found and resubmitted.
type JournalSink struct {
	path string
	next Sink
	now  func() time.Time
	mu   sync.Mutex
}

func NewJournalSink(path string, next Sink) (*JournalSink, error) {
	if next == nil {
		return nil, errors.New("journal needs a downstream sink")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &JournalSink{path: path, next: next, now: time.Now}, nil
}

func (j *JournalSink) Path() string {
	return j.path
}

func (j *JournalSink) Save(ctx context.Context, lead types.LeadRecord) error {
	if err := j.append(JournalEntry{Status: JournalPending, Lead: lead}); err != nil {
		slog.Error("Journal write failed", "lead_id", lead.ID, "error", err)
	}
	saveErr := j.next.Save(ctx, lead)
	entry := JournalEntry{Status: JournalOK, Lead: lead}
	if saveErr != nil {
		entry.Status = JournalFailed
		entry.Error = saveErr.Error()
	}
	if err := j.append(entry); err != nil {
		slog.Error("Journal write failed", "lead_id", lead.ID, "error", err)
	}
	return saveErr
}

func (j *JournalSink) append(entry JournalEntry) error {
	entry.At = j.now()
	line, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReplayResult counts the outcome of a Replay.
type ReplayResult struct {
	Replayed int
	Failed   int
}

// Replay resubmits every pending lead of the journal through the next sink.
func (j *JournalSink) Replay(ctx context.Context) (ReplayResult, error) {
	var res ReplayResult
	leads, err := Pending(j.path)
	if err != nil {
		return res, err
	}
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := j.Save(ctx, lead); err != nil {
			slog.Warn("Lead replay failed", "lead_id", lead.ID, "error", err)
			res.Failed++
			continue
		}
		slog.Info("Lead replayed", "lead_id", lead.ID)
		res.Replayed++
	}
	return res, nil
}

// Pending returns the leads of a journal whose latest entry is not ok, in
// the order they were first journaled. Undecodable lines are skipped.
func Pending(path string) ([]types.LeadRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var order []string
	latest := map[string]JournalEntry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry JournalEntry
		if err := sonic.Unmarshal(raw, &entry); err != nil {
			slog.Warn("Skipping bad journal line", "path", path, "line", line, "error", err)
			continue
		}
		if entry.Lead.ID == "" {
			continue
		}
		if _, seen := latest[entry.Lead.ID]; !seen {
			order = append(order, entry.Lead.ID)
		}
		latest[entry.Lead.ID] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var pending []types.LeadRecord
	for _, id := range order {
		if e := latest[id]; e.Status != JournalOK {
			pending = append(pending, e.Lead)
		}
	}
	return pending, nil
}
