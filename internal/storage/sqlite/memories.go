package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/engram/internal/core"
)

type MemoriesRepo struct {
	db *sql.DB
}

func NewMemoriesRepo(db *sql.DB) *MemoriesRepo {
	return &MemoriesRepo{db: db}
}

func (r *MemoriesRepo) Create(ctx context.Context, mem core.Memory) (int64, error) {
	salience := mem.Salience
	if salience < 0 {
		salience = 0
	}
	if salience > 10 {
		salience = 10
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO memories (content, source, conversation_id, extraction_type, salience, event_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		mem.Content, mem.Source, mem.ConversationID, mem.ExtractionType, salience, mem.EventDate,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert memory: %w", err)
	}
	return res.LastInsertId()
}

const memoryColumns = `id, content, source, conversation_id, extraction_type, salience,
	event_date, dormant, reinforce_count, last_reinforced_at, decayed_at, created_at`

func scanMemory(row interface{ Scan(...any) error }) (core.Memory, error) {
	var m core.Memory
	var eventDate, reinforcedAt, decayedAt sql.NullTime
	err := row.Scan(&m.ID, &m.Content, &m.Source, &m.ConversationID, &m.ExtractionType,
		&m.Salience, &eventDate, &m.Dormant, &m.ReinforceCount, &reinforcedAt, &decayedAt, &m.CreatedAt)
	if err != nil {
		return core.Memory{}, err
	}
	if eventDate.Valid {
		m.EventDate = &eventDate.Time
	}
	if reinforcedAt.Valid {
		m.LastReinforcedAt = &reinforcedAt.Time
	}
	if decayedAt.Valid {
		m.DecayedAt = &decayedAt.Time
	}
	return m, nil
}

func (r *MemoriesRepo) Get(ctx context.Context, id int64) (core.Memory, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id)
	m, err := scanMemory(row)
	if err != nil {
		return core.Memory{}, fmt.Errorf("failed to get memory %d: %w", id, err)
	}
	return m, nil
}

func (r *MemoriesRepo) Active(ctx context.Context) ([]core.Memory, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM memories WHERE dormant = 0 ORDER BY id ASC`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query active memories: %w", err)
	}
	defer rows.Close()

	var mems []core.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		mems = append(mems, m)
	}
	return mems, rows.Err()
}

func (r *MemoriesRepo) UpdateSalience(ctx context.Context, id int64, salience float64) error {
	if salience < 0 {
		salience = 0
	}
	if salience > 10 {
		salience = 10
	}
	_, err := r.db.ExecContext(ctx, `UPDATE memories SET salience = ? WHERE id = ?`, salience, id)
	return err
}

// ApplyDecay persists a decayed salience and stamps the decay anchor so the
// next pass measures elapsed time from this write.
func (r *MemoriesRepo) ApplyDecay(ctx context.Context, id int64, salience float64) error {
	if salience < 0 {
		salience = 0
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE memories SET salience = ?, decayed_at = CURRENT_TIMESTAMP WHERE id = ?`,
		salience, id)
	return err
}

func (r *MemoriesRepo) SetEventDate(ctx context.Context, id int64, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE memories SET event_date = ? WHERE id = ?`, date, id)
	return err
}

func (r *MemoriesRepo) Reinforce(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE memories
		SET reinforce_count = reinforce_count + 1,
		    last_reinforced_at = CURRENT_TIMESTAMP,
		    dormant = 0
		WHERE id = ?`, id)
	return err
}

func (r *MemoriesRepo) MarkDormant(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE memories SET dormant = 1 WHERE id = ?`, id)
	return err
}

// HasRecentContent backs relationship-fact duplicate suppression: a
// normalized substring probe against active memories inside the window.
func (r *MemoriesRepo) HasRecentContent(ctx context.Context, needle string, window time.Duration) (bool, error) {
	cutoff := time.Now().Add(-window)
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM memories
		WHERE dormant = 0 AND created_at >= ? AND LOWER(content) LIKE ?`,
		cutoff, "%"+strings.ToLower(needle)+"%",
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("duplicate probe failed: %w", err)
	}
	return count > 0, nil
}

func (r *MemoriesRepo) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	vecBlob, err := serializeVector(embedding)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO memory_vec (rowid, embedding) VALUES (?, ?)`,
		id, vecBlob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory vector: %w", err)
	}
	return nil
}

func (r *MemoriesRepo) SimilarTo(ctx context.Context, id int64, limit int) ([]core.SimilarMemory, error) {
	var vecBlob []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT embedding FROM memory_vec WHERE rowid = ?`, id,
	).Scan(&vecBlob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load memory vector: %w", err)
	}

	// Over-fetch by one because the probe memory matches itself.
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.rowid, v.distance
		FROM memory_vec v
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance`,
		vecBlob, limit+1)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var hits []core.SimilarMemory
	for rows.Next() {
		var hit core.SimilarMemory
		if err := rows.Scan(&hit.MemoryID, &hit.Distance); err != nil {
			return nil, err
		}
		if hit.MemoryID == id {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (r *MemoriesRepo) ReinforcedSince(ctx context.Context, since time.Time) ([]core.Memory, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM memories WHERE last_reinforced_at >= ? ORDER BY id ASC`, memoryColumns),
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query reinforced memories: %w", err)
	}
	defer rows.Close()

	var mems []core.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		mems = append(mems, m)
	}
	return mems, rows.Err()
}
