package sink

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type GoogleSheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	// SheetName selects the tab; empty means the first one.
	SheetName string
}

// GoogleSheetsTable is a Table backed by one tab of a Google spreadsheet.
type GoogleSheetsTable struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	sheetID       int64
}

// NewGoogleSheetsTable authenticates with the service-account credentials
// and resolves the target tab. Extra client options are appended.
func NewGoogleSheetsTable(ctx context.Context, cfg GoogleSheetsConfig, opts ...option.ClientOption) (*GoogleSheetsTable, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	doc, err := svc.Spreadsheets.Get(cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		if cfg.SheetName == "" || sh.Properties.Title == cfg.SheetName {
			return &GoogleSheetsTable{
				svc:           svc,
				spreadsheetID: cfg.SpreadsheetID,
				sheetName:     sh.Properties.Title,
				sheetID:       sh.Properties.SheetId,
			}, nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found in spreadsheet", cfg.SheetName)
}

func (t *GoogleSheetsTable) headerRange() string {
	return fmt.Sprintf("'%s'!A1:L1", t.sheetName)
}

func (t *GoogleSheetsTable) Header(ctx context.Context) ([]string, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, t.headerRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	cells := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		cells = append(cells, fmt.Sprint(v))
	}
	return cells, nil
}

// WriteHeader inserts a new row 1, fills it, and formats it bold on a blue background.
func (t *GoogleSheetsTable) WriteHeader(ctx context.Context, cells []string) error {
	insert := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "ROWS",
					StartIndex: 0,
					EndIndex:   1,
				},
			},
		}},
	}
	if _, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, insert).Context(ctx).Do(); err != nil {
		return fmt.Errorf("insert header row: %w", err)
	}

	values := &sheets.ValueRange{Values: [][]interface{}{toRow(cells)}}
	if _, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, t.headerRange(), values).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	format := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          t.sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(cells)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.4, Green: 0.6, Blue: 0.8},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		}},
	}
	if _, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, format).Context(ctx).Do(); err != nil {
		return fmt.Errorf("format header row: %w", err)
	}
	return nil
}

// AppendRow stores cells as literal text. Lead values come from chat users
// and must never be evaluated as formulas.
func (t *GoogleSheetsTable) AppendRow(ctx context.Context, cells []string) error {
	values := &sheets.ValueRange{Values: [][]interface{}{toRow(cells)}}
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, fmt.Sprintf("'%s'!A1", t.sheetName), values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

var _ Table = (*GoogleSheetsTable)(nil)
