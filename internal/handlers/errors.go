package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"syscall"

	"media-share/internal/access"
	"media-share/internal/cast"
	"media-share/internal/logging"
	"media-share/internal/streaming"
	"media-share/internal/transcoder"
)

// writeError maps err to a status code and a fixed message. Messages never
// carry paths or tool arguments; the details only go to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		probeErr *transcoder.ProbeError
		spawnErr *transcoder.SpawnError
	)

	// Tool failures come before the generic filesystem cases: a missing
	// ffmpeg binary unwraps to ENOENT too. transcoder.ErrNotFound is a
	// missing source file and stays a 404 even inside a ProbeError.
	switch {
	case errors.Is(err, streaming.ErrUnsatisfiableRange):
		streaming.RejectRange(w)
	case errors.Is(err, access.ErrNotFound),
		errors.Is(err, transcoder.ErrNotFound),
		errors.Is(err, cast.ErrDeviceNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.As(err, &spawnErr):
		logging.Error("Encoder failed to start for %s: %v", r.URL.Path, err)
		http.Error(w, "Transcoding unavailable", http.StatusInternalServerError)
	case errors.As(err, &probeErr):
		logging.Warn("Probe failed for %s: %v", r.URL.Path, err)
		http.Error(w, "Media could not be read", http.StatusUnprocessableEntity)
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, access.ErrPermission), errors.Is(err, fs.ErrPermission):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, access.ErrRootLink):
		http.Error(w, "Cannot share the root directory", http.StatusBadRequest)
	case errors.Is(err, transcoder.ErrInvalidRequest):
		http.Error(w, "Invalid stream parameters", http.StatusBadRequest)
	case errors.Is(err, cast.ErrUnavailable):
		http.Error(w, "Cast is not available", http.StatusServiceUnavailable)
	default:
		logging.Error("Request %s %s failed: %v", r.Method, r.URL.Path, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
