package handlers

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"media-share/internal/access"
	"media-share/internal/logging"
	"media-share/internal/mediatypes"
	"media-share/internal/parser"
)

// FileEntry is one item of a directory listing.
type FileEntry struct {
	Name       string              `json:"name"`
	Title      string              `json:"title"`
	Path       string              `json:"path"`
	Type       mediatypes.FileType `json:"type"`
	Size       int64               `json:"size"`
	ModTime    time.Time           `json:"modTime"`
	Streamable bool                `json:"streamable,omitempty"`
	Shared     bool                `json:"shared,omitempty"`
	// StreamURL is set in link listings for entries that can be streamed.
	StreamURL string `json:"streamUrl,omitempty"`
}

// DirectoryListing is the JSON body returned for a directory.
type DirectoryListing struct {
	Path     string      `json:"path"`
	Writable bool        `json:"writable"`
	Items    []FileEntry `json:"items"`
}

// sniffLimit is how much of a file is read to detect its content type.
const sniffLimit = 3072

type dirReader interface {
	ReadDir(name string) ([]os.FileInfo, error)
}

// readDir lists dir, using the filesystem's own ReadDir when it has one.
func (h *Handlers) readDir(dir string) ([]os.FileInfo, error) {
	if dr, ok := h.fs.(dirReader); ok {
		return dr.ReadDir(dir)
	}
	return afero.ReadDir(h.fs, dir)
}

// GetFiles lists a directory or downloads a file below the caller's virtual
// root.
func (h *Handlers) GetFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := identity(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	virtualPath := mux.Vars(r)["path"]
	if mediatypes.IsDenied(virtualPath) {
		writeError(w, r, access.ErrPermission)
		return
	}

	res, err := h.access.ResolvePath(ctx, id, virtualPath)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.fs.Stat(res.RealPath)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !info.IsDir() {
		_, download := r.URL.Query()["download"]
		h.serveFile(w, r, res.RealPath, download)
		return
	}

	items, err := h.listEntries(res.RealPath, res.VirtualPath)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.VirtualPath == "" && !res.Shared {
		items, err = h.addSharedDirectories(r, id, items)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeJSONStatus(w, http.StatusOK, DirectoryListing{
		Path:     res.VirtualPath,
		Writable: res.Writable,
		Items:    items,
	})
}

// addSharedDirectories merges the caller's shared directories into a root
// listing. A shared directory hides a private entry of the same name, since
// path resolution prefers the shared one.
func (h *Handlers) addSharedDirectories(r *http.Request, id access.Identity, items []FileEntry) ([]FileEntry, error) {
	shared, err := h.access.ListShared(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if len(shared) == 0 {
		return items, nil
	}

	names := make(map[string]bool, len(shared))
	for _, sd := range shared {
		names[sd.Name] = true
	}
	items = slices.DeleteFunc(items, func(e FileEntry) bool { return names[e.Name] })

	for _, sd := range shared {
		items = append(items, FileEntry{
			Name:   sd.Name,
			Title:  sd.Name,
			Path:   sd.Name,
			Type:   mediatypes.FileTypeFolder,
			Shared: true,
		})
	}
	sortEntries(items)
	return items, nil
}

// listEntries reads realDir and returns its visible entries with paths
// rooted at virtualDir.
func (h *Handlers) listEntries(realDir, virtualDir string) ([]FileEntry, error) {
	infos, err := h.readDir(realDir)
	if err != nil {
		return nil, err
	}

	items := make([]FileEntry, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		if hidden(name) {
			continue
		}

		entry := FileEntry{
			Name:    name,
			Path:    path.Join(virtualDir, name),
			ModTime: fi.ModTime(),
		}
		if fi.IsDir() {
			entry.Title = name
			entry.Type = mediatypes.FileTypeFolder
		} else {
			entry.Title = parser.DisplayName(name)
			entry.Type = mediatypes.GetFileType(filepath.Ext(name))
			entry.Size = fi.Size()
			entry.Streamable = mediatypes.IsStreamable(name)
		}
		items = append(items, entry)
	}

	sortEntries(items)
	return items, nil
}

// hidden reports whether name is left out of listings.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || mediatypes.IsDenied(name)
}

// sortEntries puts folders first, then orders by name ignoring case.
func sortEntries(items []FileEntry) {
	slices.SortFunc(items, func(a, b FileEntry) int {
		aDir, bDir := a.Type == mediatypes.FileTypeFolder, b.Type == mediatypes.FileTypeFolder
		if aDir != bDir {
			if aDir {
				return -1
			}
			return 1
		}
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// serveFile sends the file at realPath. The Content-Type is sniffed from
// the file's content, never taken from its extension.
func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, realPath string, attachment bool) {
	f, err := h.fs.Open(realPath)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Debug("Failed to close %s: %v", r.URL.Path, err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if info.IsDir() {
		writeError(w, r, os.ErrNotExist)
		return
	}

	contentType, err := mediatypes.DetectContentType(io.LimitReader(f, sniffLimit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeError(w, r, err)
		return
	}

	name := filepath.Base(realPath)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if attachment {
		w.Header().Set("Content-Disposition", contentDisposition(name))
	}

	http.ServeContent(w, r, name, info.ModTime(), f)
}

// contentDisposition formats an attachment header for name. Names that
// cannot be encoded fall back to a bare attachment.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
