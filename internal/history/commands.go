package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Command is one opcode the actuator bridge wrote to its MCU.
type Command struct {
	ID int64

	// Reading is the luminosity that triggered the command.
	Reading int

	// Target is the LED state the command requested ("ON" or "OFF").
	Target string

	// Opcode is the byte written ("u" or "d").
	Opcode string

	// Ack is the MCU's reply line, empty if none arrived.
	Ack         string
	AckReceived bool

	CreatedAt time.Time
}

// CommandRepository stores actuator commands in the command_history table.
type CommandRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCommandRepository creates a repository on an open, migrated database.
func NewCommandRepository(db *sql.DB) *CommandRepository {
	return &CommandRepository{db: db, now: time.Now}
}

// RecordCommand inserts a command.
//
// Returns:
//   - error: ErrInvalidCommand for an unknown target or opcode, otherwise
//     the underlying database error
func (r *CommandRepository) RecordCommand(ctx context.Context, cmd Command) error {
	if cmd.Target != "ON" && cmd.Target != "OFF" {
		return fmt.Errorf("%w: target %q", ErrInvalidCommand, cmd.Target)
	}
	if cmd.Opcode != "u" && cmd.Opcode != "d" {
		return fmt.Errorf("%w: opcode %q", ErrInvalidCommand, cmd.Opcode)
	}

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_history (reading, target, opcode, ack, ack_received, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cmd.Reading,
		cmd.Target,
		cmd.Opcode,
		cmd.Ack,
		cmd.AckReceived,
		formatTimestamp(createdAt),
	)
	if err != nil {
		return fmt.Errorf("inserting command: %w", err)
	}
	return nil
}

// Recent returns the latest commands, newest first.
//
// Parameters:
//   - limit: Maximum entries to return (default 50, max 200)
func (r *CommandRepository) Recent(ctx context.Context, limit int) ([]Command, error) {
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reading, target, opcode, ack, ack_received, created_at
		 FROM command_history
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	commands := make([]Command, 0, limit)
	for rows.Next() {
		var cmd Command
		var createdAt string
		if err := rows.Scan(&cmd.ID, &cmd.Reading, &cmd.Target, &cmd.Opcode, &cmd.Ack, &cmd.AckReceived, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		if cmd.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}

	return commands, nil
}

// Prune deletes commands older than olderThan and returns how many were removed.
func (r *CommandRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff, err := pruneCutoff(r.now(), olderThan)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM command_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting commands: %w", err)
	}
	return result.RowsAffected()
}
