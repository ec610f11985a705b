package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddDirectory registers a filesystem root under name. Registering a path that
// is already known returns the existing row unchanged. A name already used by
// another path yields ErrDuplicate.
func (d *Database) AddDirectory(ctx context.Context, path, name string) (*Directory, error) {
	const op = "database.AddDirectory"

	start := time.Now()
	var err error
	defer func() { recordQuery("add_directory", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx,
		"INSERT INTO directories (path, name) VALUES (?, ?) ON CONFLICT(path) DO NOTHING",
		path, name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var dir Directory
	err = d.db.QueryRowContext(ctx,
		"SELECT id, name, path FROM directories WHERE path = ?", path,
	).Scan(&dir.ID, &dir.Name, &dir.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &dir, nil
}

// DeleteDirectory unregisters a directory and drops every grant on it.
func (d *Database) DeleteDirectory(ctx context.Context, name string) error {
	const op = "database.DeleteDirectory"

	start := time.Now()
	var err error
	defer func() { recordQuery("delete_directory", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "DELETE FROM directories WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrNotFound
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListDirectories returns every registered directory ordered by name.
func (d *Database) ListDirectories(ctx context.Context) ([]Directory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, name, path FROM directories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirs []Directory
	for rows.Next() {
		var dir Directory
		if err := rows.Scan(&dir.ID, &dir.Name, &dir.Path); err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, rows.Err()
}

// SetAccess upserts the grant of userName on directoryName. The row is kept
// when level is 0.
func (d *Database) SetAccess(ctx context.Context, userName, directoryName string, level int) error {
	const op = "database.SetAccess"

	start := time.Now()
	var err error
	defer func() { recordQuery("set_access", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// A single statement: the SELECT yields no row when either side is unknown.
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO access (user_id, directory_id, level)
		SELECT u.id, d.id, ? FROM users u, directories d
		WHERE u.name = ? AND d.name = ?
		ON CONFLICT(user_id, directory_id) DO UPDATE SET
			level = excluded.level,
			updated_at = strftime('%s', 'now')`,
		level, userName, directoryName,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = ErrNotFound
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LookupGrant finds the directory called name among the grants of userID.
// A missing directory or grant yields ErrNotFound; a level-0 grant is returned
// as is and left to the caller.
func (d *Database) LookupGrant(ctx context.Context, userID int64, name string) (*SharedDirectory, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("resolve_directory", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var sd SharedDirectory
	err = d.db.QueryRowContext(ctx, `
		SELECT d.id, d.name, d.path, a.level
		FROM directories d JOIN access a ON a.directory_id = d.id
		WHERE a.user_id = ? AND d.name = ?`,
		userID, name,
	).Scan(&sd.ID, &sd.Name, &sd.Path, &sd.Level)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("database.LookupGrant: %w", err)
	}
	return &sd, nil
}

// SharedDirectories returns the directories userID has at least read access to.
func (d *Database) SharedDirectories(ctx context.Context, userID int64) ([]SharedDirectory, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("shared_directories", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.path, a.level
		FROM directories d JOIN access a ON a.directory_id = d.id
		WHERE a.user_id = ? AND a.level >= 1
		ORDER BY d.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirs []SharedDirectory
	for rows.Next() {
		var sd SharedDirectory
		if err = rows.Scan(&sd.ID, &sd.Name, &sd.Path, &sd.Level); err != nil {
			return nil, err
		}
		dirs = append(dirs, sd)
	}
	err = rows.Err()
	return dirs, err
}
