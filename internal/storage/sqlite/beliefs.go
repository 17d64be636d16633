package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sandevgo/engram/internal/core"
)

type BeliefsRepo struct {
	db *sql.DB
}

func NewBeliefsRepo(db *sql.DB) *BeliefsRepo {
	return &BeliefsRepo{db: db}
}

// NormalizeBelief collapses a statement to its lookup key.
func NormalizeBelief(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}

func (r *BeliefsRepo) Create(ctx context.Context, b core.Belief) (int64, error) {
	status := b.Status
	if status == "" {
		status = core.BeliefActive
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO beliefs (content, normalized, type, confidence, status)
		VALUES (?, ?, ?, ?, ?)`,
		b.Content, NormalizeBelief(b.Content), b.Type, b.Confidence, status,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert belief: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, memID := range b.Evidence {
		if err := r.AddEvidence(ctx, id, memID); err != nil {
			return id, err
		}
	}
	return id, nil
}

// FindByContent matches a statement against stored beliefs by normalized
// form, so restatements with different casing or spacing resolve to the
// same belief.
func (r *BeliefsRepo) FindByContent(ctx context.Context, content string) (core.Belief, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, content, type, confidence, status, reinforce_count, created_at
		FROM beliefs WHERE normalized = ?`,
		NormalizeBelief(content))

	var b core.Belief
	err := row.Scan(&b.ID, &b.Content, &b.Type, &b.Confidence, &b.Status, &b.ReinforceCount, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return core.Belief{}, false, nil
	}
	if err != nil {
		return core.Belief{}, false, fmt.Errorf("belief lookup failed: %w", err)
	}
	return b, true, nil
}

func (r *BeliefsRepo) Reinforce(ctx context.Context, id int64, confidence float64) error {
	if confidence > 1 {
		confidence = 1
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE beliefs
		SET reinforce_count = reinforce_count + 1,
		    confidence = MAX(confidence, ?),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		confidence, id,
	)
	return err
}

func (r *BeliefsRepo) MarkConflicted(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`UPDATE beliefs SET status = 'conflicted', updated_at = CURRENT_TIMESTAMP WHERE id IN (%s)`,
		placeholders,
	)
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *BeliefsRepo) Active(ctx context.Context) ([]core.Belief, error) {
	return r.byStatus(ctx, core.BeliefActive)
}

func (r *BeliefsRepo) Conflicted(ctx context.Context) ([]core.Belief, error) {
	return r.byStatus(ctx, core.BeliefConflicted)
}

func (r *BeliefsRepo) byStatus(ctx context.Context, status string) ([]core.Belief, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, type, confidence, status, reinforce_count, created_at
		FROM beliefs WHERE status = ? ORDER BY id ASC`,
		status)
	if err != nil {
		return nil, fmt.Errorf("failed to query beliefs: %w", err)
	}
	defer rows.Close()

	var beliefs []core.Belief
	for rows.Next() {
		var b core.Belief
		if err := rows.Scan(&b.ID, &b.Content, &b.Type, &b.Confidence, &b.Status, &b.ReinforceCount, &b.CreatedAt); err != nil {
			return nil, err
		}
		beliefs = append(beliefs, b)
	}
	return beliefs, rows.Err()
}

func (r *BeliefsRepo) AddEvidence(ctx context.Context, beliefID, memoryID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO belief_evidence (belief_id, memory_id) VALUES (?, ?)`,
		beliefID, memoryID,
	)
	return err
}
