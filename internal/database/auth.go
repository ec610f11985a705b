package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"media-share/internal/logging"
)

// DefaultSessionDuration is the length of time a session remains valid
// unless overridden with SetSessionDuration.
const DefaultSessionDuration = 7 * 24 * time.Hour

var sessionDuration atomic.Int64

func init() {
	sessionDuration.Store(int64(DefaultSessionDuration))
}

// SetSessionDuration changes the sliding session lifetime.
func SetSessionDuration(d time.Duration) {
	if d <= 0 {
		d = DefaultSessionDuration
	}
	sessionDuration.Store(int64(d))
}

// GetSessionDuration returns the configured session lifetime.
func GetSessionDuration() time.Duration {
	return time.Duration(sessionDuration.Load())
}

// HasUsers checks if any user account exists.
func (d *Database) HasUsers(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return false
	}
	return count > 0
}

// AddUser creates a user, or replaces the password of an existing user with
// the same name. Replacing a password invalidates the user's sessions.
func (d *Database) AddUser(ctx context.Context, name, password string) (*User, error) {
	const op = "database.AddUser"

	start := time.Now()
	var err error
	defer func() { recordQuery("add_user", start, err) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var createdAt, updatedAt int64
	err = d.db.QueryRowContext(ctx, `
		INSERT INTO users (name, password_hash) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = strftime('%s', 'now')
		RETURNING id, name, created_at, updated_at`,
		name, string(hash),
	).Scan(&user.ID, &user.Name, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, delErr := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", user.ID); delErr != nil {
		logging.Warn("failed to invalidate sessions for %s: %v", name, delErr)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// DeleteUser removes a user together with its grants, links and sessions.
func (d *Database) DeleteUser(ctx context.Context, name string) error {
	const op = "database.DeleteUser"

	start := time.Now()
	var err error
	defer func() { recordQuery("delete_user", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM users WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrNotFound
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserByName looks up a user by name.
func (d *Database) GetUserByName(ctx context.Context, name string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.scanUser(d.db.QueryRowContext(ctx,
		"SELECT id, name, password_hash, created_at, updated_at FROM users WHERE name = ?", name))
}

// ListUsers returns all users ordered by name.
func (d *Database) ListUsers(ctx context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, name, created_at, updated_at FROM users ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var createdAt, updatedAt int64
		if err := rows.Scan(&u.ID, &u.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = time.Unix(createdAt, 0)
		u.UpdatedAt = time.Unix(updatedAt, 0)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *Database) scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAt, updatedAt int64
	err := row.Scan(&user.ID, &user.Name, &user.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// ValidatePassword checks the password for the named user and returns the
// user if it matches.
func (d *Database) ValidatePassword(ctx context.Context, name, password string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_password", start, err) }()

	user, err := d.GetUserByName(ctx, name)
	if err != nil {
		// Spend the same bcrypt time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		err = ErrInvalidCredentials
		return nil, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		err = ErrInvalidCredentials
		return nil, err
	}

	return user, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("media-share"), bcrypt.DefaultCost)

// CreateSession creates a new session for a user.
func (d *Database) CreateSession(ctx context.Context, userID int64) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tokenBytes := make([]byte, 32)
	if _, err = rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Only the hash is stored
	token := hex.EncodeToString(tokenBytes)
	expiresAt := time.Now().Add(GetSessionDuration())

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, hashToken(tokenBytes), expiresAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, _ := result.LastInsertId()

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

func hashToken(tokenBytes []byte) string {
	hash := sha256.Sum256(tokenBytes)
	return hex.EncodeToString(hash[:])
}

func hashTokenString(token string) (string, error) {
	tokenBytes, err := hex.DecodeString(token)
	if err != nil || len(tokenBytes) != 32 {
		return "", fmt.Errorf("invalid token format")
	}
	return hashToken(tokenBytes), nil
}

// ValidateSession checks if a session token is valid and returns its user.
func (d *Database) ValidateSession(ctx context.Context, token string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_session", start, err) }()

	tokenHash, err := hashTokenString(token)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var expiresAt, createdAt, updatedAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.created_at, u.updated_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`,
		tokenHash,
	).Scan(&user.ID, &user.Name, &createdAt, &updatedAt, &expiresAt)
	if err != nil {
		err = fmt.Errorf("invalid session")
		return nil, err
	}

	if time.Now().Unix() > expiresAt {
		err = fmt.Errorf("session expired")
		return nil, err
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// ExtendSession pushes the session expiry forward by the session duration.
func (d *Database) ExtendSession(ctx context.Context, token string) error {
	tokenHash, err := hashTokenString(token)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "UPDATE sessions SET expires_at = ? WHERE token = ?",
		time.Now().Add(GetSessionDuration()).Unix(), tokenHash)
	return err
}

// DeleteSession removes a session.
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	tokenHash, err := hashTokenString(token)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", tokenHash)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (d *Database) CleanExpiredSessions(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	return err
}
