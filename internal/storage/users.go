package storage

import (
	"fmt"
	"time"
)

// User is someone granted access at runtime by an admin.
type User struct {
	UserID    int64
	AddedBy   int64
	CreatedAt time.Time
}

// AddUser grants access to userID. It reports false if the user was already present.
func (s *Storage) AddUser(userID, addedBy int64) (bool, error) {
	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO users (user_id, added_by, created_at)
		VALUES (?, ?, ?)
	`, userID, addedBy, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to add user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (s *Storage) RemoveUser(userID int64) error {
	result, err := s.db.Exec(`DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	return nil
}

func (s *Storage) IsUser(userID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}

func (s *Storage) ListUsers() ([]*User, error) {
	rows, err := s.db.Query(`
		SELECT user_id, added_by, created_at
		FROM users
		ORDER BY created_at, user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.AddedBy, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
