package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Message is one bus message observed by the monitor.
type Message struct {
	ID         int64
	Topic      string
	Payload    string
	ReceivedAt time.Time
}

// MessageRepository stores observed bus traffic in the message_log table.
type MessageRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewMessageRepository creates a repository on an open, migrated database.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db, now: time.Now}
}

// RecordMessage inserts a message stamped with the current time.
func (r *MessageRepository) RecordMessage(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return ErrTopicRequired
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO message_log (topic, payload, received_at) VALUES (?, ?, ?)",
		topic,
		string(payload),
		formatTimestamp(r.now()),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// Recent returns the latest messages, newest first. An empty topic matches
// every topic.
//
// Parameters:
//   - limit: Maximum entries to return (default 50, max 200)
func (r *MessageRepository) Recent(ctx context.Context, topic string, limit int) ([]Message, error) {
	limit = clampLimit(limit)

	query := `SELECT id, topic, payload, received_at FROM message_log`
	args := []any{}
	if topic != "" {
		query += ` WHERE topic = ?`
		args = append(args, topic)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		var receivedAt string
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if m.ReceivedAt, err = parseTimestamp(receivedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}

// Prune deletes messages older than olderThan and returns how many were removed.
func (r *MessageRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff, err := pruneCutoff(r.now(), olderThan)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM message_log WHERE received_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting messages: %w", err)
	}
	return result.RowsAffected()
}
