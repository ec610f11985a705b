package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"media-share/internal/access"
	"media-share/internal/database"

	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	// Database file name inside DATABASE_DIR
	databaseFile = "media-share.db"

	minPasswordLength = 6
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, databaseFile)

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}

	a := newApp(db, os.Stdout, os.Stderr, stdinPasswords())
	code := a.run(ctx, os.Args[1:])

	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	os.Exit(code)
}

// passwordFunc prompts for a secret and returns it without the trailing
// newline.
type passwordFunc func(prompt string) ([]byte, error)

// stdinPasswords reads passwords without echo from a terminal, or one line at
// a time when stdin is piped.
func stdinPasswords() passwordFunc {
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115 - file descriptors fit in int
	if term.IsTerminal(fd) {
		return func(prompt string) ([]byte, error) {
			fmt.Print(prompt)
			defer fmt.Println()
			return term.ReadPassword(fd)
		}
	}
	return linePasswords(os.Stdin)
}

func linePasswords(r io.Reader) passwordFunc {
	br := bufio.NewReader(r)
	return func(string) ([]byte, error) {
		line, err := br.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			return nil, err
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}
}

type app struct {
	db       *database.Database
	model    *access.Model
	out      io.Writer
	errOut   io.Writer
	password passwordFunc
}

func newApp(db *database.Database, out, errOut io.Writer, password passwordFunc) *app {
	return &app{
		db:       db,
		model:    access.New(db, "", nil),
		out:      out,
		errOut:   errOut,
		password: password,
	}
}

// run executes one command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(a.out)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var err error
	switch args[0] {
	case "user":
		err = a.userCommand(ctx, args[1:])
	case "dir":
		err = a.dirCommand(ctx, args[1:])
	case "grant":
		err = a.grant(ctx, args[1:])
	case "status":
		err = a.status(ctx)
	case "help", "-h", "--help":
		printUsage(a.out)
		return 0
	default:
		// Sanitize command input using allowlist to break taint chain
		fmt.Fprintf(a.errOut, "Unknown command: %s\n", sanitizeCommand(args[0]))
		printUsage(a.errOut)
		return 1
	}

	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

// errUsage reports a malformed command line.
type errUsage string

func (e errUsage) Error() string { return "usage: sharectl " + string(e) }

func (a *app) userCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage("user add|del|passwd|list ...")
	}

	switch args[0] {
	case "list":
		users, err := a.db.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(a.out, "%s\t%s\n", u.Name, u.CreatedAt.Format(time.DateOnly))
		}
		return nil
	case "add", "del", "passwd":
	default:
		return errUsage("user add|del|passwd|list ...")
	}

	if len(args) != 2 {
		return errUsage("user " + args[0] + " <name>")
	}
	name := args[1]
	if !validName(name) {
		return fmt.Errorf("invalid user name %q", name)
	}

	switch args[0] {
	case "del":
		if err := a.db.DeleteUser(ctx, name); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("user %s does not exist", name)
			}
			return err
		}
		fmt.Fprintf(a.out, "User %s deleted.\n", name)
		return nil

	case "passwd":
		if _, err := a.db.GetUserByName(ctx, name); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("user %s does not exist", name)
			}
			return err
		}
	}

	password, err := a.readNewPassword()
	if err != nil {
		return err
	}
	if _, err := a.db.AddUser(ctx, name, string(password)); err != nil {
		return err
	}

	if args[0] == "add" {
		fmt.Fprintf(a.out, "User %s saved.\n", name)
	} else {
		fmt.Fprintf(a.out, "Password for %s updated.\n", name)
		fmt.Fprintln(a.out, "All existing sessions have been invalidated.")
	}
	return nil
}

func (a *app) readNewPassword() ([]byte, error) {
	password, err := a.password("New Password: ")
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	confirm, err := a.password("Confirm Password: ")
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if !bytes.Equal(password, confirm) {
		return nil, errors.New("passwords do not match")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return password, nil
}

func (a *app) dirCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage("dir add|del|list ...")
	}

	switch args[0] {
	case "list":
		dirs, err := a.db.ListDirectories(ctx)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			fmt.Fprintf(a.out, "%s\t%s\n", d.Name, d.Path)
		}
		return nil

	case "add":
		if len(args) < 2 || len(args) > 3 {
			return errUsage("dir add <path> [name]")
		}
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}

		name := filepath.Base(path)
		if len(args) == 3 {
			name = args[2]
		}
		if !validName(name) {
			return fmt.Errorf("invalid directory name %q", name)
		}

		dir, err := a.db.AddDirectory(ctx, path, name)
		if err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return fmt.Errorf("a directory named %s already exists", name)
			}
			return err
		}
		if dir.Name != name {
			fmt.Fprintf(a.out, "%s is already registered as %s.\n", path, dir.Name)
			return nil
		}
		fmt.Fprintf(a.out, "Directory %s added (%s).\n", dir.Name, dir.Path)
		return nil

	case "del":
		if len(args) != 2 {
			return errUsage("dir del <name>")
		}
		if err := a.db.DeleteDirectory(ctx, args[1]); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("directory %s does not exist", args[1])
			}
			return err
		}
		fmt.Fprintf(a.out, "Directory %s deleted.\n", args[1])
		return nil
	}
	return errUsage("dir add|del|list ...")
}

func (a *app) grant(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage("grant <user> <directory> <none|read|write>")
	}
	level, err := parseLevel(args[2])
	if err != nil {
		return err
	}

	if err := a.model.Grant(ctx, args[0], args[1], level); err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return fmt.Errorf("unknown user %s or directory %s", args[0], args[1])
		}
		return err
	}

	if level == access.LevelNone {
		fmt.Fprintf(a.out, "Access of %s to %s revoked.\n", args[0], args[1])
	} else {
		fmt.Fprintf(a.out, "%s now has %s access to %s.\n", args[0], levelName(level), args[1])
	}
	return nil
}

// parseLevel accepts a level by name or number.
func parseLevel(s string) (int, error) {
	switch strings.ToLower(s) {
	case "none", "revoke":
		return access.LevelNone, nil
	case "read", "ro":
		return access.LevelRead, nil
	case "write", "readwrite", "rw":
		return access.LevelReadWrite, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < access.LevelNone || n > access.LevelReadWrite {
		return 0, fmt.Errorf("invalid access level %q", s)
	}
	return n, nil
}

func levelName(level int) string {
	switch level {
	case access.LevelRead:
		return "read"
	case access.LevelReadWrite:
		return "read-write"
	}
	return "no"
}

func (a *app) status(ctx context.Context) error {
	stats, err := a.model.LibraryStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Users:           %d\n", stats.Users)
	fmt.Fprintf(a.out, "Directories:     %d\n", stats.Directories)
	fmt.Fprintf(a.out, "Active links:    %d\n", stats.ActiveLinks)
	fmt.Fprintf(a.out, "Expired links:   %d\n", stats.ExpiredLinks)
	fmt.Fprintf(a.out, "Active sessions: %d\n", stats.ActiveSessions)
	if stats.Users == 0 {
		fmt.Fprintln(a.out, "No users configured. Add one with: sharectl user add <name>")
	}
	return nil
}

// validName reports whether name can be used as a single path segment.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Share Administration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: sharectl <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  user add <name>                  - Create a user or replace its password")
	fmt.Fprintln(w, "  user passwd <name>               - Change the password of an existing user")
	fmt.Fprintln(w, "  user del <name>                  - Delete a user with its links and sessions")
	fmt.Fprintln(w, "  user list                        - List users")
	fmt.Fprintln(w, "  dir add <path> [name]            - Register a shareable directory")
	fmt.Fprintln(w, "  dir del <name>                   - Unregister a directory")
	fmt.Fprintln(w, "  dir list                         - List directories")
	fmt.Fprintln(w, "  grant <user> <dir> <none|read|write> - Set a user's access to a directory")
	fmt.Fprintln(w, "  status                           - Show library counts")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}
