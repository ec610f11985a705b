package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"media-share/internal/access"
	"media-share/internal/cast"
	"media-share/internal/logging"
	"media-share/internal/mediatypes"
	"media-share/internal/transcoder"
)

// CastRequest is the optional body of POST /cast.
type CastRequest struct {
	Device string `json:"device"`
}

// ListCastDevices returns the receivers found on the local network.
func (h *Handlers) ListCastDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.caster.Devices(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if devices == nil {
		devices = []cast.Device{}
	}
	writeJSONStatus(w, http.StatusOK, devices)
}

// Cast hands the stream URL of a shared file to a receiver. GET, or any
// request with ?list, lists receivers instead once the link resolves.
func (h *Handlers) Cast(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	token := vars["id"]
	query := r.URL.Query()
	_, list := query["list"]
	if token == "" {
		h.ListCastDevices(w, r)
		return
	}

	sub := cleanSubpath(vars["subpath"])
	if mediatypes.IsDenied(sub) {
		writeError(w, r, access.ErrPermission)
		return
	}

	if list || r.Method == http.MethodGet {
		if _, _, err := h.access.ResolveLinkPath(r.Context(), token, sub); err != nil {
			writeError(w, r, err)
			return
		}
		h.ListCastDevices(w, r)
		return
	}

	if err := checkCastQuery(query); err != nil {
		writeError(w, r, err)
		return
	}

	var req CastRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Device == "" {
		req.Device = query.Get("device")
	}

	// Resolve first so a dead link is a 404 rather than a receiver error.
	_, res, err := h.access.ResolveLinkPath(r.Context(), token, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if mediatypes.IsDenied(filepath.Base(res.RealPath)) {
		writeError(w, r, access.ErrPermission)
		return
	}

	streamURL := castStreamURL(baseURL(r), token, sub, query)
	if err := h.caster.Play(r.Context(), req.Device, streamURL, transcoder.ProfileMatroska.MIMEType()); err != nil {
		writeError(w, r, err)
		return
	}

	logging.Info("Casting link %s to %q", token, req.Device)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"status": "playing",
		"url":    streamURL,
	})
}

// castStreamURL builds the stream URL receivers are given. Receivers get
// Matroska in HD; the start offset and audio track of the cast request
// carry over so playback resumes where the viewer asked.
func castStreamURL(base, token, sub string, query url.Values) string {
	u := base + "/stream/" + token
	if sub != "" {
		u += "/" + escapePath(sub)
	}
	q := url.Values{}
	q.Set("format", string(transcoder.ProfileMatroska))
	q.Set("hd", "1")
	for _, key := range []string{"start", "audio"} {
		if v := query.Get(key); v != "" {
			q.Set(key, v)
		}
	}
	return u + "?" + q.Encode()
}

// checkCastQuery rejects offsets and tracks the stream handler would refuse,
// so a receiver is never handed a URL that fails.
func checkCastQuery(query url.Values) error {
	if _, err := transcoder.ParseOffset(query.Get("start")); err != nil {
		return err
	}
	if v := query.Get("audio"); v != "" {
		if track, err := strconv.Atoi(v); err != nil || track < 0 {
			return fmt.Errorf("%w: audio track %q", transcoder.ErrInvalidRequest, v)
		}
	}
	return nil
}
