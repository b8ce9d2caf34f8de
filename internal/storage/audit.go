package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusOK     = "ok"
	StatusDenied = "denied"
	StatusFailed = "failed"
)

// CommandRecord is one handled command or callback.
type CommandRecord struct {
	ID        int64
	RequestID string
	ChatID    int64
	UserID    int64
	Command   string
	Args      []string
	Status    string
	Chunks    int
	CreatedAt time.Time
}

// NewRequestID returns a fresh identifier for correlating logs with audit rows.
func NewRequestID() string {
	return uuid.New().String()
}

func (s *Storage) LogCommand(rec *CommandRecord) error {
	if rec.RequestID == "" {
		rec.RequestID = NewRequestID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT INTO command_log (request_id, chat_id, user_id, command, args, status, chunks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.ChatID, rec.UserID, rec.Command, strings.Join(rec.Args, " "), rec.Status, rec.Chunks, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log command: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id

	return nil
}

// RecentCommands returns up to limit records, oldest first.
func (s *Storage) RecentCommands(limit int) ([]*CommandRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, request_id, chat_id, user_id, command, args, status, chunks, created_at
		FROM command_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent commands: %w", err)
	}
	defer rows.Close()

	var records []*CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var args string
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.ChatID, &rec.UserID, &rec.Command, &args, &rec.Status, &rec.Chunks, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		rec.Args = strings.Fields(args)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commands: %w", err)
	}

	// Reverse to get chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}

func (s *Storage) CommandCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM command_log`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get command count: %w", err)
	}
	return count, nil
}

// PruneCommands deletes audit records created before cutoff.
func (s *Storage) PruneCommands(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM command_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune commands: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
