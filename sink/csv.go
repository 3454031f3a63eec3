package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// CSVTable is a Table kept in a local CSV file.
type CSVTable struct {
	path string
	mu   sync.Mutex
}

func NewCSVTable(path string) (*CSVTable, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}
	return &CSVTable{path: path}, nil
}

func (t *CSVTable) read() ([][]string, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
}

func (t *CSVTable) Header(ctx context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, err := t.read()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// WriteHeader replaces a blank first row, or inserts the header above existing rows.
func (t *CSVTable) WriteHeader(ctx context.Context, cells []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, err := t.read()
	if err != nil {
		return err
	}
	if len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	rows = append([][]string{cells}, rows...)

	tmp := t.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, t.path)
}

func (t *CSVTable) AppendRow(ctx context.Context, cells []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(cells); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Rows returns every row of the file, header included.
func (t *CSVTable) Rows() ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read()
}

var _ Table = (*CSVTable)(nil)
