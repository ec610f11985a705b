// Package database provides the SQLite store for the media server.
//
// It handles storage and retrieval of:
//   - User accounts and authentication sessions
//   - Registered directories and per-user access grants
//   - Share links
//
// The database uses WAL mode for improved concurrent read performance,
// enforces foreign keys so grants, links and sessions follow their user,
// and initializes its schema automatically.
package database
