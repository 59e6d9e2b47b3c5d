package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores campaigns in Postgres. The full document lives
// in a jsonb column; niche and status are lifted out for querying.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

const campaignSchema = `
CREATE TABLE IF NOT EXISTS campaigns (
    id         TEXT PRIMARY KEY,
    niche      TEXT NOT NULL,
    status     TEXT NOT NULL,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
`

// NewPostgresRepository connects to Postgres and ensures the schema.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, campaignSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring campaign schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Save upserts the campaign row.
func (r *PostgresRepository) Save(ctx context.Context, c *Campaign) error {
	c.UpdatedAt = time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding campaign %s: %w", c.ID, err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO campaigns (id, niche, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET niche = EXCLUDED.niche, status = EXCLUDED.status,
		    doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		c.ID, c.Niche, c.Status, doc, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving campaign %s: %w", c.ID, err)
	}
	return nil
}

// Get loads one campaign; ok is false when it does not exist.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Campaign, bool, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM campaigns WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading campaign %s: %w", id, err)
	}
	var c Campaign
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, false, fmt.Errorf("decoding campaign %s: %w", id, err)
	}
	return &c, true, nil
}

// List returns all campaigns, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Campaign, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*Campaign
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		var c Campaign
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("decoding campaign: %w", err)
		}
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}

// SetStatus updates the status column and the stored document together.
func (r *PostgresRepository) SetStatus(ctx context.Context, id, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $2,
		    doc = jsonb_set(doc, '{status}', to_jsonb($2::text)),
		    updated_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating campaign %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s not found", id)
	}
	return nil
}
