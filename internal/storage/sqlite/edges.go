package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/engram/internal/core"
)

type EdgesRepo struct {
	db *sql.DB
}

func NewEdgesRepo(db *sql.DB) *EdgesRepo {
	return &EdgesRepo{db: db}
}

// orderPair normalizes endpoints so (a, b) and (b, a) address the same edge.
func orderPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *EdgesRepo) Create(ctx context.Context, a, b int64, weight, similarity float64) error {
	a, b = orderPair(a, b)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memory_edges (memory_a, memory_b, weight, similarity)
		VALUES (?, ?, ?, ?)`,
		a, b, weight, similarity,
	)
	if err != nil {
		return fmt.Errorf("failed to insert edge %d-%d: %w", a, b, err)
	}
	return nil
}

func (r *EdgesRepo) Exists(ctx context.Context, a, b int64) (bool, error) {
	a, b = orderPair(a, b)
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_edges WHERE memory_a = ? AND memory_b = ?`,
		a, b,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *EdgesRepo) Reinforce(ctx context.Context, a, b int64, delta, maxWeight float64) error {
	a, b = orderPair(a, b)
	_, err := r.db.ExecContext(ctx, `
		UPDATE memory_edges
		SET weight = MIN(weight + ?, ?),
		    last_reinforced_at = CURRENT_TIMESTAMP
		WHERE memory_a = ? AND memory_b = ?`,
		delta, maxWeight, a, b,
	)
	return err
}

func (r *EdgesRepo) Prune(ctx context.Context, floor float64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memory_edges WHERE weight < ?`, floor)
	if err != nil {
		return 0, fmt.Errorf("edge prune failed: %w", err)
	}
	return res.RowsAffected()
}

func (r *EdgesRepo) ForMemory(ctx context.Context, memoryID int64) ([]core.Edge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, memory_a, memory_b, weight, similarity, last_reinforced_at, created_at
		FROM memory_edges
		WHERE memory_a = ? OR memory_b = ?
		ORDER BY weight DESC`,
		memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []core.Edge
	for rows.Next() {
		var e core.Edge
		var reinforcedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.MemoryA, &e.MemoryB, &e.Weight, &e.Similarity, &reinforcedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		if reinforcedAt.Valid {
			e.LastReinforcedAt = &reinforcedAt.Time
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
