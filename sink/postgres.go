package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tbxark/leadagent/types"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	region string
}

// NewPostgres connects to databaseURL and creates the leads table if needed.
func NewPostgres(ctx context.Context, databaseURL, region string) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &PostgresRepository{pool: pool, region: region}
	if err := repo.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return repo, nil
}

func (r *PostgresRepository) initSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
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
		created_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, lead types.LeadRecord) error {
	_, err := r.pool.Exec(ctx, `
	INSERT INTO leads (id, session_id, property_type, budget, location, name, email, phone, phone_e164, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING`,
		lead.ID, lead.SessionID, lead.PropertyType, lead.Budget, lead.Location,
		lead.Name, lead.Email, lead.Phone, NormalizeE164(lead.Phone, r.region),
		lead.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*StoredLead, error) {
	var lead StoredLead
	err := r.pool.QueryRow(ctx, `
		SELECT id, session_id, property_type, budget, location, name, email, phone, phone_e164, created_at
		FROM leads WHERE id = $1`, id).Scan(
		&lead.ID, &lead.SessionID, &lead.PropertyType, &lead.Budget, &lead.Location,
		&lead.Name, &lead.Email, &lead.Phone, &lead.PhoneE164, &lead.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead row: %w", err)
	}
	return &lead, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
