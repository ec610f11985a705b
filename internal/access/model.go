package access

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"media-share/internal/database"
	"media-share/internal/logging"
	"media-share/internal/metrics"
)

// Access levels stored on a grant.
const (
	LevelNone      = 0
	LevelRead      = 1
	LevelReadWrite = 2
)

// LinkLifetime is how long a share link resolves after creation. A link
// whose age is exactly LinkLifetime still resolves.
const LinkLifetime = 7 * 24 * time.Hour

// maxTokenAttempts bounds the collision retry loop in CreateLink.
const maxTokenAttempts = 32

// Store is the persistence the model needs. *database.Database satisfies it.
type Store interface {
	GetUserByName(ctx context.Context, name string) (*database.User, error)
	SetAccess(ctx context.Context, userName, directoryName string, level int) error
	LookupGrant(ctx context.Context, userID int64, name string) (*database.SharedDirectory, error)
	SharedDirectories(ctx context.Context, userID int64) ([]database.SharedDirectory, error)
	LinkExists(ctx context.Context, token string) (bool, error)
	InsertLink(ctx context.Context, link *database.Link) error
	GetLink(ctx context.Context, token string) (*database.Link, error)
	LibraryCounts(ctx context.Context, linkCutoff time.Time) (database.LibraryCounts, error)
}

// Options tunes a Model. A nil *Options uses the OS filesystem, the wall
// clock and RandomToken.
type Options struct {
	Fs     afero.Fs
	Now    func() time.Time
	Tokens TokenGenerator
}

// Model maps a user and a virtual path to a real location and manages share
// links. It holds no per-request state.
type Model struct {
	store       Store
	fs          afero.Fs
	privateRoot string
	now         func() time.Time
	tokens      TokenGenerator
}

// Resolution is the outcome of ResolvePath.
type Resolution struct {
	RealPath    string
	VirtualPath string
	Writable    bool
	// Shared is true when the path lies in a registered directory rather than
	// the user's private storage.
	Shared bool
}

// RequireWritable returns ErrPermission unless the resolution is writable.
func (r Resolution) RequireWritable() error {
	if !r.Writable {
		return ErrPermission
	}
	return nil
}

// New creates a Model. privateRoot holds one private storage directory per
// user, created on first use.
func New(store Store, privateRoot string, opts *Options) *Model {
	m := &Model{
		store:       store,
		fs:          afero.NewOsFs(),
		privateRoot: privateRoot,
		now:         time.Now,
		tokens:      RandomToken,
	}
	if opts != nil {
		if opts.Fs != nil {
			m.fs = opts.Fs
		}
		if opts.Now != nil {
			m.now = opts.Now
		}
		if opts.Tokens != nil {
			m.tokens = opts.Tokens
		}
	}
	return m
}

// ResolveDirectory resolves a virtual path whose first segment names a
// registered directory the user holds a nonzero grant on. It returns the real
// path and the level (1 or 2).
func (m *Model) ResolveDirectory(ctx context.Context, user Identity, virtualPath string) (string, int, error) {
	first, rest := splitVirtual(virtualPath)
	if first == "" {
		return "", LevelNone, ErrNotFound
	}

	grant, err := m.store.LookupGrant(ctx, user.UserID, first)
	if errors.Is(err, database.ErrNotFound) {
		return "", LevelNone, ErrNotFound
	}
	if err != nil {
		return "", LevelNone, fmt.Errorf("resolve directory %q: %w", first, err)
	}
	if grant.Level <= LevelNone {
		return "", LevelNone, ErrNotFound
	}

	return filepath.Join(grant.Path, filepath.FromSlash(rest)), grant.Level, nil
}

// ResolvePath resolves a virtual path against the user's grants, falling back
// to the user's private storage when no grant matches.
func (m *Model) ResolvePath(ctx context.Context, user Identity, virtualPath string) (Resolution, error) {
	realPath, level, err := m.ResolveDirectory(ctx, user, virtualPath)
	if err == nil {
		first, rest := splitVirtual(virtualPath)
		metrics.PathResolutions.WithLabelValues("shared").Inc()
		return Resolution{
			RealPath:    realPath,
			VirtualPath: joinVirtual(first, rest),
			Writable:    level >= LevelReadWrite,
			Shared:      true,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Resolution{}, err
	}

	root, err := m.privateDir(ctx, user)
	if err != nil {
		return Resolution{}, err
	}

	// The whole path is cleaned here, so a leading ".." cannot leave root.
	rel := cleanRemainder(virtualPath)
	metrics.PathResolutions.WithLabelValues("private").Inc()
	return Resolution{
		RealPath:    filepath.Join(root, filepath.FromSlash(rel)),
		VirtualPath: rel,
		Writable:    true,
	}, nil
}

// privateDir returns the user's private storage directory, creating it when
// missing.
func (m *Model) privateDir(ctx context.Context, user Identity) (string, error) {
	if !validUserName(user.Name) {
		return "", ErrNotFound
	}

	u, err := m.store.GetUserByName(ctx, user.Name)
	if errors.Is(err, database.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user %q: %w", user.Name, err)
	}
	if user.UserID != 0 && u.ID != user.UserID {
		return "", ErrNotFound
	}

	dir := filepath.Join(m.privateRoot, user.Name)
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create private storage: %w", err)
	}
	return dir, nil
}

// Grant sets the access level of userName on directoryName. Level 0 keeps the
// row and acts as a revocation.
func (m *Model) Grant(ctx context.Context, userName, directoryName string, level int) error {
	if level < LevelNone || level > LevelReadWrite {
		return ErrInvalidLevel
	}

	err := m.store.SetAccess(ctx, userName, directoryName, level)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("grant %s on %s: %w", userName, directoryName, ErrNotFound)
	}
	if err != nil {
		return err
	}

	logging.Info("Access of %s on %s set to %d", userName, directoryName, level)
	return nil
}

// ListShared returns the directories the user can read.
func (m *Model) ListShared(ctx context.Context, user Identity) ([]database.SharedDirectory, error) {
	return m.store.SharedDirectories(ctx, user.UserID)
}

// CreateLink mints a share link for virtualPath owned by user. The path is
// resolved now and the link keeps that location for its whole lifetime. The
// path is not required to exist.
//
// The stored virtual path is canonical rather than the caller's string:
// surrounding slashes are trimmed and dot segments resolved, so
// "/movies/./film.mkv" is stored as "movies/film.mkv".
func (m *Model) CreateLink(ctx context.Context, user Identity, virtualPath string) (string, error) {
	rel := cleanRemainder(virtualPath)
	if rel == "" {
		return "", ErrRootLink
	}

	res, err := m.ResolvePath(ctx, user, rel)
	if err != nil {
		return "", err
	}

	link := &database.Link{
		UserID:    user.UserID,
		Path:      res.VirtualPath,
		RealPath:  res.RealPath,
		CreatedAt: m.now(),
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := m.tokens()
		if err != nil {
			return "", fmt.Errorf("generate link token: %w", err)
		}

		exists, err := m.store.LinkExists(ctx, token)
		if err != nil {
			return "", err
		}
		if exists {
			metrics.LinkTokenCollisions.Inc()
			logging.Debug("Link token collision on attempt %d", attempt+1)
			continue
		}

		// A concurrent insert can still take the token between the check and here.
		link.Token = token
		err = m.store.InsertLink(ctx, link)
		if errors.Is(err, database.ErrDuplicate) {
			metrics.LinkTokenCollisions.Inc()
			continue
		}
		if err != nil {
			return "", err
		}

		metrics.LinksCreated.Inc()
		logging.Debug("Link %s created for %s", token, user.Name)
		return token, nil
	}

	logging.Warn("Gave up drawing a link token after %d attempts", maxTokenAttempts)
	return "", ErrTokenSpace
}

// ResolveLink returns the owner and virtual path bound to token. The path is
// the canonical form CreateLink stored, not necessarily the string it was
// given.
//
// The owner's access is captured when the link is created and is not checked
// again here: a link keeps resolving after its owner's grant is lowered or
// revoked, until it expires.
func (m *Model) ResolveLink(ctx context.Context, token string) (Identity, string, error) {
	link, err := m.lookupLink(ctx, token)
	if err != nil {
		return Identity{}, "", err
	}
	return Identity{UserID: link.UserID, Name: link.UserName}, link.Path, nil
}

// ResolveLinkPath resolves subpath below the location captured by token.
// subpath is cleaned first so it cannot climb above the linked path. Links
// are read-only, so the resolution is never writable.
func (m *Model) ResolveLinkPath(ctx context.Context, token, subpath string) (Identity, Resolution, error) {
	link, err := m.lookupLink(ctx, token)
	if err != nil {
		return Identity{}, Resolution{}, err
	}

	sub := cleanRemainder(subpath)
	owner := Identity{UserID: link.UserID, Name: link.UserName}
	return owner, Resolution{
		RealPath:    filepath.Join(link.RealPath, filepath.FromSlash(sub)),
		VirtualPath: joinVirtual(link.Path, sub),
	}, nil
}

func (m *Model) lookupLink(ctx context.Context, token string) (*database.Link, error) {
	if !ValidToken(token) {
		metrics.LinkResolutions.WithLabelValues("unknown").Inc()
		return nil, ErrNotFound
	}

	link, err := m.store.GetLink(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		metrics.LinkResolutions.WithLabelValues("unknown").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	age := m.now().Unix() - link.CreatedAt.Unix()
	if age > int64(LinkLifetime/time.Second) {
		metrics.LinkResolutions.WithLabelValues("expired").Inc()
		return nil, ErrNotFound
	}

	metrics.LinkResolutions.WithLabelValues("ok").Inc()
	return link, nil
}

// LibraryStats implements metrics.StatsProvider.
func (m *Model) LibraryStats(ctx context.Context) (metrics.Stats, error) {
	c, err := m.store.LibraryCounts(ctx, m.now().Add(-LinkLifetime))
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{
		Users:          c.Users,
		Directories:    c.Directories,
		ActiveLinks:    c.ActiveLinks,
		ExpiredLinks:   c.ExpiredLinks,
		ActiveSessions: c.ActiveSessions,
	}, nil
}

// splitVirtual trims slashes from p and returns its first segment and the
// cleaned remainder.
func splitVirtual(p string) (first, rest string) {
	first, rest, _ = strings.Cut(strings.Trim(p, "/"), "/")
	return first, cleanRemainder(rest)
}

// cleanRemainder cleans p as if rooted, so ".." can never climb out.
func cleanRemainder(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func joinVirtual(first, rest string) string {
	if rest == "" {
		return first
	}
	if first == "" {
		return rest
	}
	return first + "/" + rest
}

func validUserName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
