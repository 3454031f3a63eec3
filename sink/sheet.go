package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tbxark/leadagent/types"
)

// SheetHeader is the column layout of the lead spreadsheet.
var SheetHeader = []string{
	"Timestamp", "Name", "Phone", "Email", "Property Type",
	"Purpose", "Budget", "Location", "Bedrooms",
	"Timeline", "Source", "Status",
}

const (
	SheetTimeLayout = "2006-01-02 15:04:05"
	SheetSource     = "AI Chatbot"
	SheetStatus     = "New"
)

// Table is a spreadsheet with a header row.
type Table interface {
	// Header returns the cells of row 1, empty when the sheet is new.
	Header(ctx context.Context) ([]string, error)
	// WriteHeader puts cells into row 1, keeping existing rows below it.
	WriteHeader(ctx context.Context, cells []string) error
	AppendRow(ctx context.Context, cells []string) error
}

// SheetMirror appends one row per lead to a Table and provisions the
// header the first time it finds row 1 blank.
type SheetMirror struct {
	table Table
	loc   *time.Location

	mu        sync.Mutex
	hasHeader bool
}

func NewSheetMirror(table Table, loc *time.Location) *SheetMirror {
	if loc == nil {
		loc = time.Local
	}
	return &SheetMirror{table: table, loc: loc}
}

func (m *SheetMirror) Save(ctx context.Context, lead types.LeadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureHeader(ctx); err != nil {
		return err
	}
	if err := m.table.AppendRow(ctx, LeadRow(lead, m.loc)); err != nil {
		return fmt.Errorf("append lead row: %w", err)
	}
	return nil
}

func (m *SheetMirror) ensureHeader(ctx context.Context) error {
	if m.hasHeader {
		return nil
	}
	header, err := m.table.Header(ctx)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if blankRow(header) {
		if err := m.table.WriteHeader(ctx, SheetHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	m.hasHeader = true
	return nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LeadRow lays a lead out in SheetHeader order.
func LeadRow(lead types.LeadRecord, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	return []string{
		lead.CapturedAt.In(loc).Format(SheetTimeLayout),
		lead.Name,
		lead.Phone,
		lead.Email,
		lead.PropertyType,
		"",
		lead.Budget,
		lead.Location,
		"",
		"",
		SheetSource,
		SheetStatus,
	}
}
