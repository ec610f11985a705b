package handlers

import (
	"encoding/json"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"media-share/internal/access"
	"media-share/internal/mediatypes"
)

// CreateLinkRequest is the body of POST /api/links.
type CreateLinkRequest struct {
	Path string `json:"path"`
}

// LinkResponse describes a newly created share link.
type LinkResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	StreamURL string    `json:"streamUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateLink mints a share link for a path of the caller.
func (h *Handlers) CreateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8192)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if mediatypes.IsDenied(req.Path) {
		writeError(w, r, access.ErrPermission)
		return
	}

	token, err := h.access.CreateLink(r.Context(), id, req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}

	base := baseURL(r)
	writeJSONStatus(w, http.StatusCreated, LinkResponse{
		ID:        token,
		URL:       base + "/link/" + token,
		StreamURL: base + "/stream/" + token,
		ExpiresAt: time.Now().Add(access.LinkLifetime).UTC(),
	})
}

// GetLink serves the location captured by a share link. Directories are
// listed read-only; files are always sent as attachments.
func (h *Handlers) GetLink(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	token := vars["id"]
	sub := cleanSubpath(vars["subpath"])

	if mediatypes.IsDenied(sub) {
		writeError(w, r, access.ErrPermission)
		return
	}

	_, res, err := h.access.ResolveLinkPath(r.Context(), token, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if mediatypes.IsDenied(filepath.Base(res.RealPath)) {
		writeError(w, r, access.ErrPermission)
		return
	}

	info, err := h.fs.Stat(res.RealPath)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !info.IsDir() {
		h.serveFile(w, r, res.RealPath, true)
		return
	}

	// Paths in a link listing are relative to the link, so the owner's
	// layout above it stays private.
	items, err := h.listEntries(res.RealPath, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	streamBase := baseURL(r) + "/stream/" + token + "/"
	for i := range items {
		if items[i].Streamable {
			items[i].StreamURL = streamBase + escapePath(items[i].Path)
		}
	}

	writeJSONStatus(w, http.StatusOK, DirectoryListing{
		Path:  sub,
		Items: items,
	})
}

// cleanSubpath cleans a link subpath as if rooted so it cannot climb out.
func cleanSubpath(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return p[1:]
}
