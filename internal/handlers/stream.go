package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"media-share/internal/access"
	"media-share/internal/logging"
	"media-share/internal/mediatypes"
	"media-share/internal/streaming"
	"media-share/internal/transcoder"
)

// StreamMedia transcodes the file behind a share link and streams it live.
//
// The output has no length and cannot be seeked, so any Range other than
// "bytes=0-" is refused before the link is even looked up. ?info returns
// the probed duration instead of a stream.
func (h *Handlers) StreamMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := streaming.CheckRange(r.Header.Get("Range")); err != nil {
		writeError(w, r, err)
		return
	}

	vars := mux.Vars(r)
	token := vars["id"]
	sub := cleanSubpath(vars["subpath"])
	if mediatypes.IsDenied(sub) {
		writeError(w, r, access.ErrPermission)
		return
	}

	_, res, err := h.access.ResolveLinkPath(ctx, token, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if mediatypes.IsDenied(filepath.Base(res.RealPath)) {
		writeError(w, r, access.ErrPermission)
		return
	}

	query := r.URL.Query()
	if _, ok := query["info"]; ok {
		desc, err := h.engine.Describe(ctx, res.RealPath)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusOK, desc)
		return
	}

	req, err := parseStreamRequest(res.RealPath, query)
	if err != nil {
		logging.Debug("Rejected stream parameters for %s: %v", token, err)
		writeError(w, r, err)
		return
	}

	stream, _, err := h.engine.OpenStream(ctx, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logging.Debug("Stream %s closed with error: %v", stream.ID, err)
		}
	}()

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Stream-Id", stream.ID)
	if _, err := h.engine.Serve(ctx, w, stream); err != nil {
		logging.Debug("Stream %s for link %s stopped: %v", stream.ID, token, err)
	}
}

// parseStreamRequest reads the stream options from the query string.
func parseStreamRequest(realPath string, query url.Values) (transcoder.Request, error) {
	req := transcoder.Request{Path: realPath, Quality: transcoder.QualityStandard}

	profile, err := transcoder.ParseProfile(query.Get("format"))
	if err != nil {
		return req, err
	}
	req.Profile = profile

	hd, err := parseFlag(query, "hd")
	if err != nil {
		return req, err
	}
	if hd {
		req.Quality = transcoder.QualityHD
	}

	if req.Start, err = transcoder.ParseOffset(query.Get("start")); err != nil {
		return req, err
	}
	if req.Stop, err = transcoder.ParseOffset(query.Get("stop")); err != nil {
		return req, err
	}

	if req.ForceSubtitles, err = parseFlag(query, "subtitles"); err != nil {
		return req, err
	}

	if v := query.Get("audio"); v != "" {
		track, err := strconv.Atoi(v)
		if err != nil || track < 0 {
			return req, fmt.Errorf("%w: audio track %q", transcoder.ErrInvalidRequest, v)
		}
		req.AudioTrack = &track
	}

	return req, nil
}

// parseFlag reads a boolean query parameter. A bare key counts as true.
func parseFlag(query url.Values, key string) (bool, error) {
	values, ok := query[key]
	if !ok {
		return false, nil
	}
	switch v := strings.ToLower(values[0]); v {
	case "", "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s=%q", transcoder.ErrInvalidRequest, key, v)
	}
}
