package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examprep/internal/model"
)

const authSessionTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown user, a
	// wrong password or a disabled account.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by SignUp when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
)

type signUpRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

var signUpValidator = validator.New()

// SignUp registers a new user with a bcrypt-hashed password.
func (s *Store) SignUp(email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := signUpValidator.Struct(signUpRequest{Email: email, Password: password}); err != nil {
		return nil, fmt.Errorf("invalid sign-up: %w", err)
	}

	existing, err := s.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.CreateUser(model.User{Email: email, PasswordHash: string(hash), Active: true})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.GetUserByID(id)
}

// SignIn checks the credentials and opens an auth session. It returns the
// user and the session token.
func (s *Store) SignIn(email, password string) (*model.User, string, error) {
	user, err := s.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", err
	}
	if user == nil || !user.Active {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	now := time.Now()
	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, user.ID, now, now.Add(authSessionTTL),
	); err != nil {
		return nil, "", fmt.Errorf("create auth session: %w", err)
	}
	return user, token, nil
}

// SignOut ends the auth session behind token. Unknown tokens are ignored.
func (s *Store) SignOut(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CurrentSession resolves a token to its active user. It returns nil for
// unknown or expired tokens and for disabled users.
func (s *Store) CurrentSession(token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.SignOut(token)
		return nil, nil
	}

	user, err := s.GetUserByID(sess.UserID)
	if err != nil || user == nil || !user.Active {
		return nil, err
	}
	return user, nil
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
