package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sandevgo/engram/internal/core"
)

type IdentityRepo struct {
	db *sql.DB
}

func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{db: db}
}

func (r *IdentityRepo) Get(ctx context.Context) (core.Identity, error) {
	var id core.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT name, locked, source FROM identity WHERE id = 1`,
	).Scan(&id.Name, &id.Locked, &id.Source)
	if err != nil {
		return core.Identity{}, fmt.Errorf("failed to read identity: %w", err)
	}
	return id, nil
}

// LockName is a single atomic check-and-set: the locked guard lives in the
// UPDATE itself, so two racing callers cannot both win. Returns whether this
// call acquired the lock.
func (r *IdentityRepo) LockName(ctx context.Context, name, source string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE identity
		SET name = ?, locked = 1, source = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1 AND locked = 0`,
		name, source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to lock identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
