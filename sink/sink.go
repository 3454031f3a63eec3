// Package sink persists completed leads: a record store, a spreadsheet
// mirror, a write-ahead journal, and a fan-out that combines them.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tbxark/leadagent/types"
	"golang.org/x/sync/errgroup"
)

type Sink interface {
	Save(ctx context.Context, lead types.LeadRecord) error
}

// Backend is a named Sink inside a Fanout.
type Backend struct {
	Name string
	Sink Sink
}

// Fanout writes a lead to every backend concurrently. A failing backend
// never stops the others; all failures are joined into one error.
type Fanout struct {
	backends []Backend
}

func NewFanout(backends ...Backend) *Fanout {
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Sink != nil {
			out = append(out, b)
		}
	}
	return &Fanout{backends: out}
}

func (f *Fanout) Save(ctx context.Context, lead types.LeadRecord) error {
	errs := make([]error, len(f.backends))
	var g errgroup.Group
	for i, b := range f.backends {
		g.Go(func() error {
			if err := b.Sink.Save(ctx, lead); err != nil {
				slog.Warn("Lead backend failed", "backend", b.Name, "lead_id", lead.ID, "error", err)
				errs[i] = fmt.Errorf("%s: %w", b.Name, err)
				return nil
			}
			slog.Debug("Lead backend stored", "backend", b.Name, "lead_id", lead.ID)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (f *Fanout) Len() int {
	return len(f.backends)
}
