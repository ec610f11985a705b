package streaming

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnsatisfiableRange is returned for any Range header other than the
// whole-body request. Transcoded output has no known length, so a byte
// offset cannot be mapped back to a position in the source.
var ErrUnsatisfiableRange = errors.New("requested range not satisfiable")

// CheckRange accepts an absent Range header or "bytes=0-" and rejects
// everything else with ErrUnsatisfiableRange.
func CheckRange(header string) error {
	h := strings.TrimSpace(header)
	if h == "" {
		return nil
	}
	unit, ranges, ok := strings.Cut(h, "=")
	if ok && strings.EqualFold(strings.TrimSpace(unit), "bytes") && strings.TrimSpace(ranges) == "0-" {
		return nil
	}
	return ErrUnsatisfiableRange
}

// RejectRange writes a 416 response for an unsatisfiable range.
func RejectRange(w http.ResponseWriter) {
	w.Header().Set("Content-Range", "bytes */*")
	w.Header().Set("Accept-Ranges", "none")
	http.Error(w, "Requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
}
