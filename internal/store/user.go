package store

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/examprep/internal/model"
)

const userColumns = `id, email, password_hash, active, created_at`

// CreateUser inserts a new user and returns its id.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (email, password_hash, active, created_at) VALUES (?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Active, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "email", u.Email)
	return id, nil
}

// GetUserByEmail returns the user with that (normalized) email, or nil.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByID returns the user with that id, or nil.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserActive enables or disables sign-in for a user. Open sessions of a
// disabled user stop resolving.
func (s *Store) SetUserActive(id int64, active bool) error {
	_, err := s.db.Exec(`UPDATE users SET active = ? WHERE id = ?`, active, id)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
