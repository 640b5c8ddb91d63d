// Package sequence produces per-school, per-year monotonically increasing
// numbers for human-readable identifiers such as student numbers.
package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store hands out the next value for a composite counter key.
type Store interface {
	Next(ctx context.Context, entity, tenantKey string, year int) (int, error)
}

// Generator implements Store on PostgreSQL. The increment is a single
// upsert statement so concurrent callers are serialised by the row lock
// and can never observe the same value.
type Generator struct {
	pool *pgxpool.Pool
}

// NewGenerator constructs a Generator.
func NewGenerator(pool *pgxpool.Pool) *Generator {
	return &Generator{pool: pool}
}

// Next returns the post-increment value for (entity, tenantKey, year),
// creating the counter row lazily on first use. A new calendar year starts
// a fresh sequence at 1.
func (g *Generator) Next(ctx context.Context, entity, tenantKey string, year int) (int, error) {
	var seq int
	err := g.pool.QueryRow(ctx, `INSERT INTO sequence_counters (entity, tenant_key, year, seq)
VALUES ($1, $2, $3, 1)
ON CONFLICT (entity, tenant_key, year) DO UPDATE SET seq = sequence_counters.seq + 1
RETURNING seq`, entity, tenantKey, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s/%s/%d: %w", entity, tenantKey, year, err)
	}
	return seq, nil
}

// Format renders the human-readable identifier. Values are zero-padded to
// four digits but never truncated once the sequence outgrows the pad.
func Format(tenantKey string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", tenantKey, year, seq)
}

var _ Store = (*Generator)(nil)
