package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/leadagent/agent"
	"github.com/tbxark/leadagent/config"
	"github.com/tbxark/leadagent/dialogue"
	"github.com/tbxark/leadagent/extract"
	"github.com/tbxark/leadagent/sink"
)

// app holds the wired service and everything that must be closed on exit.
type app struct {
	cfg     *config.Config
	service *agent.Service
	sink    sink.Sink
	journal *sink.JournalSink
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stderr))
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	leadSink, err := a.buildSink(ctx)
	if err != nil {
		return nil, err
	}
	a.sink = leadSink

	states, err := a.buildStateStore(ctx)
	if err != nil {
		return nil, err
	}

	flow, err := a.buildFlow(ctx, leadSink)
	if err != nil {
		return nil, err
	}
	a.service = agent.NewService(flow, states)
	ok = true
	return a, nil
}

func (a *app) buildFlow(ctx context.Context, leadSink sink.Sink) (*agent.LeadFlow, error) {
	cfg := a.cfg
	machineOpts := []agent.MachineOption{agent.WithSinkTimeout(cfg.Sink.Timeout.Duration)}

	if cfg.LLM.APIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, using the offline extractor and question generator")
		return agent.NewLeadFlow(
			extract.LocalExtractor{},
			dialogue.LocalDialogueGenerator{},
			agent.NewMachine(leadSink, machineOpts...),
		), nil
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return agent.NewToolBasedLeadFlow(cm, leadSink, agent.FlowOptions{
		Extract: []extract.Option{
			extract.WithTemperature(cfg.LLM.Temperature),
			extract.WithTimeout(cfg.LLM.Timeout.Duration),
		},
		Dialogue: []dialogue.GeneratorOption{
			dialogue.WithDialogueLang(cfg.LLM.Language),
			dialogue.WithHistoryWindow(cfg.Session.HistoryWindow),
			dialogue.WithTemperature(cfg.LLM.Temperature),
			dialogue.WithTimeout(cfg.LLM.Timeout.Duration),
		},
		Machine:        machineOpts,
		ToolExtraction: cfg.LLM.ToolExtraction,
	})
}

func (a *app) buildStateStore(ctx context.Context) (*agent.StateStore, error) {
	ttl := a.cfg.Session.TTL.Duration
	if url := a.cfg.Session.RedisURL; url != "" {
		cache, err := agent.NewRedisCacheFromURL[*agent.State](ctx, url, ttl)
		if err != nil {
			return nil, fmt.Errorf("connect session store: %w", err)
		}
		a.closers = append(a.closers, cache.Close)
		slog.Info("Session store ready", "backend", "redis", "ttl", ttl)
		return agent.NewStateStore(cache), nil
	}

	cache := agent.NewMemoryCache[*agent.State](ttl)
	if ttl > 0 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		go sweepLoop(sweepCtx, cache, ttl)
		a.closers = append(a.closers, func() error { cancel(); return nil })
	}
	slog.Info("Session store ready", "backend", "memory", "ttl", ttl)
	return agent.NewStateStore(cache), nil
}

func sweepLoop(ctx context.Context, cache *agent.MemoryCache[*agent.State], ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/4, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cache.Sweep(); n > 0 {
				slog.Debug("Expired sessions removed", "count", n)
			}
		}
	}
}

// buildSink assembles journal -> fanout(record store, sheet mirror).
func (a *app) buildSink(ctx context.Context) (sink.Sink, error) {
	cfg := a.cfg.Sink
	if enabled := cfg.Backends(); len(enabled) < 2 {
		slog.Warn("Fewer than two lead backends configured, a single backend failure loses leads", "backends", enabled)
	}
	var backends []sink.Backend

	switch {
	case cfg.DSN == "":
	case cfg.Postgres():
		repo, err := sink.NewPostgres(ctx, cfg.DSN, cfg.PhoneRegion)
		if err != nil {
			return nil, fmt.Errorf("open postgres record store: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		backends = append(backends, sink.Backend{Name: "postgres", Sink: repo})
	default:
		repo, err := sink.NewSQLite(cfg.DSN, cfg.PhoneRegion)
		if err != nil {
			return nil, fmt.Errorf("open sqlite record store: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		backends = append(backends, sink.Backend{Name: "sqlite", Sink: repo})
	}

	switch {
	case cfg.SpreadsheetID != "":
		table, err := sink.NewGoogleSheetsTable(ctx, sink.GoogleSheetsConfig{
			CredentialsFile: cfg.CredentialsFile,
			SpreadsheetID:   cfg.SpreadsheetID,
			SheetName:       cfg.SheetName,
		})
		if err != nil {
			return nil, fmt.Errorf("open google sheet: %w", err)
		}
		backends = append(backends, sink.Backend{Name: "google_sheets", Sink: sink.NewSheetMirror(table, cfg.Location())})
	case cfg.CSVPath != "":
		table, err := sink.NewCSVTable(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		backends = append(backends, sink.Backend{Name: "csv_sheet", Sink: sink.NewSheetMirror(table, cfg.Location())})
	}

	if len(backends) == 0 {
		slog.Warn("No lead backends configured")
		return nil, nil
	}
	var out sink.Sink = sink.NewFanout(backends...)
	if cfg.JournalPath != "" {
		journal, err := sink.NewJournalSink(cfg.JournalPath, out)
		if err != nil {
			return nil, err
		}
		a.journal = journal
		out = journal
	}
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.Name)
	}
	slog.Info("Lead sink ready", "backends", names, "journal", cfg.JournalPath)
	return out, nil
}
