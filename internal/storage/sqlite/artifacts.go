package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sandevgo/engram/internal/core"
)

// Commitments, reminders, notes and lists are write-mostly side-effect
// artifacts of the dispatch and extraction paths.

type CommitmentsRepo struct {
	db *sql.DB
}

func NewCommitmentsRepo(db *sql.DB) *CommitmentsRepo {
	return &CommitmentsRepo{db: db}
}

func (r *CommitmentsRepo) Create(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	status := c.Status
	if status == "" {
		status = core.CommitmentCandidate
	}
	var sourceMemory any
	if c.SourceMemoryID != 0 {
		sourceMemory = c.SourceMemoryID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO commitments (title, description, due_at, all_day, source_memory_id, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Title, c.Description, c.DueAt, c.AllDay, sourceMemory, status,
	)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("failed to insert commitment: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Commitment{}, err
	}
	c.Status = status
	return c, nil
}

type RemindersRepo struct {
	db *sql.DB
}

func NewRemindersRepo(db *sql.DB) *RemindersRepo {
	return &RemindersRepo{db: db}
}

func (r *RemindersRepo) Create(ctx context.Context, rem core.Reminder) (core.Reminder, error) {
	// The schema enforces exactly-one timing mode; fail fast here so the
	// caller gets a readable error instead of a constraint violation.
	if (rem.DelayMinutes == nil) == (rem.ScheduledAt == nil) {
		return core.Reminder{}, fmt.Errorf("reminder needs exactly one of delay or scheduled time")
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (title, delay_minutes, scheduled_at) VALUES (?, ?, ?)`,
		rem.Title, rem.DelayMinutes, rem.ScheduledAt,
	)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("failed to insert reminder: %w", err)
	}
	rem.ID, err = res.LastInsertId()
	if err != nil {
		return core.Reminder{}, err
	}
	return rem, nil
}

type NotesRepo struct {
	db *sql.DB
}

func NewNotesRepo(db *sql.DB) *NotesRepo {
	return &NotesRepo{db: db}
}

func (r *NotesRepo) Create(ctx context.Context, n core.Note) (core.Note, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notes (title, content, category, entity_name) VALUES (?, ?, ?, ?)`,
		n.Title, n.Content, n.Category, n.EntityName,
	)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to insert note: %w", err)
	}
	n.ID, err = res.LastInsertId()
	if err != nil {
		return core.Note{}, err
	}
	return n, nil
}

type ListsRepo struct {
	db *sql.DB
}

func NewListsRepo(db *sql.DB) *ListsRepo {
	return &ListsRepo{db: db}
}

func (r *ListsRepo) Create(ctx context.Context, l core.List) (core.List, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO lists (name, list_type, entity_name) VALUES (?, ?, ?)`,
		l.Name, l.ListType, l.EntityName,
	)
	if err != nil {
		return core.List{}, fmt.Errorf("failed to insert list: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return core.List{}, err
	}
	return l, nil
}

func (r *ListsRepo) FindByName(ctx context.Context, name string) (core.List, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, list_type, entity_name, created_at
		FROM lists WHERE LOWER(name) = LOWER(?) LIMIT 1`,
		strings.TrimSpace(name))

	var l core.List
	err := row.Scan(&l.ID, &l.Name, &l.ListType, &l.EntityName, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return core.List{}, false, nil
	}
	if err != nil {
		return core.List{}, false, fmt.Errorf("list lookup failed: %w", err)
	}
	return l, true, nil
}

func (r *ListsRepo) AddItem(ctx context.Context, listID int64, content string) (core.ListItem, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO list_items (list_id, content) VALUES (?, ?)`,
		listID, content,
	)
	if err != nil {
		return core.ListItem{}, fmt.Errorf("failed to insert list item: %w", err)
	}
	item := core.ListItem{ListID: listID, Content: content}
	item.ID, err = res.LastInsertId()
	if err != nil {
		return core.ListItem{}, err
	}
	return item, nil
}
