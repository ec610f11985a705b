package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertLink stores a share link. A token that is already taken yields
// ErrDuplicate so the caller can draw another one.
func (d *Database) InsertLink(ctx context.Context, link *Link) error {
	const op = "database.InsertLink"

	start := time.Now()
	var err error
	defer func() { recordQuery("insert_link", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		"INSERT INTO links (token, user_id, path, real_path, created_at) VALUES (?, ?, ?, ?, ?)",
		link.Token, link.UserID, link.Path, link.RealPath, link.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LinkExists reports whether token is already stored, expired or not.
func (d *Database) LinkExists(ctx context.Context, token string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("link_exists", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err = d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM links WHERE token = ?)", token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database.LinkExists: %w", err)
	}
	return exists, nil
}

// GetLink returns the link stored under token along with its owner's name.
// Expiry is not evaluated here.
func (d *Database) GetLink(ctx context.Context, token string) (*Link, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_link", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var link Link
	var createdAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT l.token, l.user_id, u.name, l.path, l.real_path, l.created_at
		FROM links l JOIN users u ON u.id = l.user_id
		WHERE l.token = ?`,
		token,
	).Scan(&link.Token, &link.UserID, &link.UserName, &link.Path, &link.RealPath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("database.GetLink: %w", err)
	}

	link.CreatedAt = time.Unix(createdAt, 0)
	return &link, nil
}

// LibraryCounts holds row counts used for the library gauges.
type LibraryCounts struct {
	Users          int
	Directories    int
	ActiveLinks    int
	ExpiredLinks   int
	ActiveSessions int
}

// LibraryCounts counts users, directories, sessions and links. Links created
// before linkCutoff are counted as expired.
func (d *Database) LibraryCounts(ctx context.Context, linkCutoff time.Time) (LibraryCounts, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("library_stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c LibraryCounts
	err = d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM directories),
			(SELECT COUNT(*) FROM links WHERE created_at >= ?),
			(SELECT COUNT(*) FROM links WHERE created_at < ?),
			(SELECT COUNT(*) FROM sessions WHERE expires_at >= ?)`,
		linkCutoff.Unix(), linkCutoff.Unix(), time.Now().Unix(),
	).Scan(&c.Users, &c.Directories, &c.ActiveLinks, &c.ExpiredLinks, &c.ActiveSessions)
	if err != nil {
		return c, fmt.Errorf("database.LibraryCounts: %w", err)
	}
	return c, nil
}
