package transcoder

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the source is missing or not a regular
	// file. Nothing is spawned in that case.
	ErrNotFound = errors.New("media file not found")

	// ErrInvalidRequest is returned for unknown profiles or qualities and
	// inconsistent time offsets.
	ErrInvalidRequest = errors.New("invalid transcode request")
)

// ProbeError reports a failed ffprobe invocation or unusable probe output.
type ProbeError struct {
	// Kind is the probe that failed: "duration" or "subtitles".
	Kind   string
	Path   string
	Err    error
	Stderr string
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s of %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// SpawnError reports that the encoder could not be started.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
