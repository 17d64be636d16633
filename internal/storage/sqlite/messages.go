package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sandevgo/engram/internal/core"
)

type MessagesRepo struct {
	db *sql.DB
}

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (r *MessagesRepo) AddMessage(ctx context.Context, conversationID, role, content string) (core.StoredMessage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.StoredMessage{}, err
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?`,
		conversationID,
	).Scan(&seq)
	if err != nil {
		return core.StoredMessage{}, fmt.Errorf("failed to compute sequence: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, seq) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, seq,
	)
	if err != nil {
		return core.StoredMessage{}, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.StoredMessage{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.StoredMessage{}, err
	}

	msg := core.StoredMessage{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, content, seq, extraction_status, created_at FROM messages WHERE id = ?`,
		id,
	).Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.Seq, &msg.Status, &msg.CreatedAt)
	if err != nil {
		return core.StoredMessage{}, fmt.Errorf("failed to read back message: %w", err)
	}
	return msg, nil
}

func (r *MessagesRepo) ConversationsWithPending(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT conversation_id
		FROM messages
		WHERE extraction_status = 'pending' AND role = 'user'
		ORDER BY conversation_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessagesRepo) PendingUserMessages(ctx context.Context, conversationID string) ([]core.StoredMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, seq, extraction_status, created_at
		FROM messages
		WHERE conversation_id = ? AND extraction_status = 'pending' AND role = 'user'
		ORDER BY seq ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.StoredMessage
	for rows.Next() {
		var m core.StoredMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Seq, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessagesRepo) MarkExtracted(ctx context.Context, messageIDs []int64) error {
	return r.transition(ctx, messageIDs, core.StatusExtracted)
}

func (r *MessagesRepo) MarkSkipped(ctx context.Context, messageIDs []int64) error {
	return r.transition(ctx, messageIDs, core.StatusSkipped)
}

// transition moves pending messages to a terminal status. The pending guard
// makes the update a no-op for rows already extracted or skipped, so a
// message can never move backward or be processed twice.
func (r *MessagesRepo) transition(ctx context.Context, messageIDs []int64, status core.ExtractionStatus) error {
	if len(messageIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(messageIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, string(status))
	for _, id := range messageIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`UPDATE messages SET extraction_status = ? WHERE id IN (%s) AND extraction_status = 'pending'`,
		placeholders,
	)
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
