package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/engram/internal/core"
)

type InsightsRepo struct {
	db *sql.DB
}

func NewInsightsRepo(db *sql.DB) *InsightsRepo {
	return &InsightsRepo{db: db}
}

func (r *InsightsRepo) Create(ctx context.Context, in core.Insight) (int64, error) {
	status := in.Status
	if status == "" {
		status = "open"
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO insights (kind, content, confidence, status) VALUES (?, ?, ?, ?)`,
		in.Kind, in.Content, in.Confidence, status,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", in.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, memID := range in.Evidence {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO insight_evidence (insight_id, memory_id) VALUES (?, ?)`,
			id, memID,
		)
		if err != nil {
			return id, err
		}
	}
	return id, nil
}

func (r *InsightsRepo) ExistsContent(ctx context.Context, kind, content string) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM insights WHERE kind = ? AND content = ?`,
		kind, content,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EntitiesRepo resolves named entities against names already attached to
// notes and lists. First match wins; a miss is not an error.
type EntitiesRepo struct {
	db *sql.DB
}

func NewEntitiesRepo(db *sql.DB) *EntitiesRepo {
	return &EntitiesRepo{db: db}
}

func (r *EntitiesRepo) Search(ctx context.Context, name string) (string, bool, error) {
	if name == "" {
		return "", false, nil
	}

	var found string
	err := r.db.QueryRowContext(ctx, `
		SELECT entity_name FROM (
			SELECT entity_name FROM notes WHERE entity_name != ''
			UNION
			SELECT entity_name FROM lists WHERE entity_name != ''
		)
		WHERE LOWER(entity_name) LIKE '%' || LOWER(?) || '%'
		ORDER BY entity_name LIMIT 1`,
		name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("entity search failed: %w", err)
	}
	return found, true, nil
}
