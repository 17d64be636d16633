package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/engram/internal/core"
)

type CategoriesRepo struct {
	db *sql.DB
}

func NewCategoriesRepo(db *sql.DB) *CategoriesRepo {
	return &CategoriesRepo{db: db}
}

func (r *CategoriesRepo) Link(ctx context.Context, memoryID int64, scores []core.CategoryScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, s := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO memory_categories (memory_id, category, relevance, reason)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (memory_id, category) DO UPDATE SET relevance = excluded.relevance, reason = excluded.reason`,
			memoryID, s.Category, s.Relevance, s.Reason,
		)
		if err != nil {
			return fmt.Errorf("failed to link category %q: %w", s.Category, err)
		}
	}
	return tx.Commit()
}

func (r *CategoriesRepo) ForMemory(ctx context.Context, memoryID int64) ([]core.CategoryScore, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, relevance, reason
		FROM memory_categories WHERE memory_id = ? ORDER BY relevance DESC`,
		memoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory categories: %w", err)
	}
	defer rows.Close()

	var scores []core.CategoryScore
	for rows.Next() {
		var s core.CategoryScore
		if err := rows.Scan(&s.Category, &s.Relevance, &s.Reason); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *CategoriesRepo) Counts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT mc.category, COUNT(*)
		FROM memory_categories mc
		JOIN memories m ON m.id = mc.memory_id
		WHERE m.dormant = 0
		GROUP BY mc.category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

func (r *CategoriesRepo) GetSummary(ctx context.Context, category string) (string, error) {
	var summary string
	err := r.db.QueryRowContext(ctx,
		`SELECT summary FROM category_summaries WHERE category = ?`, category,
	).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read summary: %w", err)
	}
	return summary, nil
}

func (r *CategoriesRepo) UpdateSummary(ctx context.Context, category, summary string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_summaries (category, summary, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (category) DO UPDATE SET summary = excluded.summary, updated_at = CURRENT_TIMESTAMP`,
		category, summary,
	)
	return err
}
