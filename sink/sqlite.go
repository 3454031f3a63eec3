package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tbxark/leadagent/types"
	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db     *sql.DB
	region string
}

// NewSQLite opens or creates the database at dbPath. region is the default
// phone region used for the phone_e164 column.
func NewSQLite(dbPath, region string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, region: region}
	if err := repo.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		property_type TEXT NOT NULL,
		budget TEXT NOT NULL,
		location TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		phone_e164 TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id);
	CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Save(ctx context.Context, lead types.LeadRecord) error {
	query := `
	INSERT INTO leads (id, session_id, property_type, budget, location, name, email, phone, phone_e164, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.SessionID, lead.PropertyType, lead.Budget, lead.Location,
		lead.Name, lead.Email, lead.Phone, NormalizeE164(lead.Phone, r.region),
		lead.CapturedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*StoredLead, error) {
	query := `
		SELECT id, session_id, property_type, budget, location, name, email, phone, phone_e164, created_at
		FROM leads WHERE id = ?`

	var lead StoredLead
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID, &lead.SessionID, &lead.PropertyType, &lead.Budget, &lead.Location,
		&lead.Name, &lead.Email, &lead.Phone, &lead.PhoneE164, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead row: %w", err)
	}
	lead.CapturedAt = time.UnixMilli(createdAt).UTC()
	return &lead, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

var _ Repository = (*SQLiteRepository)(nil)
