package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"media-share/internal/logging"
	"media-share/internal/metrics"
	"media-share/internal/streaming"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultKillGrace    = 2 * time.Second
	DefaultProbeTimeout = 30 * time.Second
)

// Config locates the external tools and tunes process teardown.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	// KillGrace is how long a stream's encoder gets to exit after SIGTERM
	// before it is killed.
	KillGrace    time.Duration
	ProbeTimeout time.Duration
}

// Engine probes media files and runs one encoder process per stream.
type Engine struct {
	cfg Config

	streams  map[string]*Stream
	streamMu sync.Mutex

	streamConfig streaming.TimeoutWriterConfig
}

// Description is the probed metadata of a media file.
type Description struct {
	Duration float64 `json:"duration"`
}

// Request describes one stream.
type Request struct {
	Path    string
	Profile Profile
	Quality Quality
	// Start seeks the input before decoding; zero means from the beginning.
	Start time.Duration
	// Stop ends the output at this source timestamp; zero means the end.
	Stop time.Duration
	// ForceSubtitles burns in an embedded subtitle track when no sidecar
	// .srt file exists.
	ForceSubtitles bool
	// AudioTrack selects the n-th audio stream; nil keeps ffmpeg's choice.
	AudioTrack *int
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}

	config := streaming.DefaultTimeoutWriterConfig()
	config.WriteTimeout = 30 * time.Second
	config.IdleTimeout = 60 * time.Second
	config.ChunkSize = 256 * 1024 // 256KB chunks for video

	return &Engine{
		cfg:          cfg,
		streams:      make(map[string]*Stream),
		streamConfig: config,
	}
}

// Describe returns the container duration of the file at path.
func (e *Engine) Describe(ctx context.Context, path string) (*Description, error) {
	if err := checkRegular(path); err != nil {
		return nil, &ProbeError{Kind: "duration", Path: path, Err: err}
	}

	out, err := e.probe(ctx, "duration", path,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return nil, err
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		metrics.TranscoderProbeErrors.WithLabelValues("duration").Inc()
		return nil, &ProbeError{Kind: "duration", Path: path, Err: fmt.Errorf("unexpected output %q", strings.TrimSpace(out))}
	}

	return &Description{Duration: duration}, nil
}

// hasEmbeddedSubtitles reports whether the source carries a subtitle stream.
func (e *Engine) hasEmbeddedSubtitles(ctx context.Context, path string) (bool, error) {
	out, err := e.probe(ctx, "subtitles", path,
		"-v", "error",
		"-select_streams", "s",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// probe runs ffprobe with args and returns its stdout.
func (e *Engine) probe(ctx context.Context, kind, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.TranscoderProbeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	cmd := exec.CommandContext(ctx, e.cfg.FFprobePath, args...)

	var stdout bytes.Buffer
	stderr := newTailBuffer(16 * 1024)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		metrics.TranscoderProbeErrors.WithLabelValues(kind).Inc()
		logging.Debug("ffprobe %s failed for %s: %v: %s", kind, path, err, stderr.Tail(5))
		return "", &ProbeError{Kind: kind, Path: path, Err: err, Stderr: stderr.Tail(5)}
	}

	return stdout.String(), nil
}

// OpenStream starts an encoder for req and returns its output together with
// the MIME type of the chosen profile. The caller owns the Stream and must
// Close it; cancelling ctx also terminates the encoder.
func (e *Engine) OpenStream(ctx context.Context, req Request) (*Stream, string, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, "", err
	}

	if err := checkRegular(req.Path); err != nil {
		return nil, "", err
	}

	chain, err := e.buildChain(ctx, req)
	if err != nil {
		return nil, "", err
	}

	args := buildArgs(req, chain)
	mimeType := req.Profile.MIMEType()

	streamCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(streamCtx, e.cfg.FFmpegPath, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.cfg.KillGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, "", &SpawnError{Binary: e.cfg.FFmpegPath, Err: err}
	}
	stderr := newTailBuffer(64 * 1024)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		metrics.TranscoderStreamsTotal.WithLabelValues(string(req.Profile), string(req.Quality), "spawn_error").Inc()
		logging.Error("Failed to start encoder %s: %v", e.cfg.FFmpegPath, err)
		return nil, "", &SpawnError{Binary: e.cfg.FFmpegPath, Err: err}
	}

	s := &Stream{
		ID:       uuid.NewString(),
		MIMEType: mimeType,
		engine:   e,
		cmd:      cmd,
		stdout:   stdout,
		stderr:   stderr,
		cancel:   cancel,
		profile:  req.Profile,
		quality:  req.Quality,
		started:  time.Now(),
	}

	e.streamMu.Lock()
	e.streams[s.ID] = s
	e.streamMu.Unlock()

	metrics.TranscoderStreamsTotal.WithLabelValues(string(req.Profile), string(req.Quality), "started").Inc()
	metrics.TranscoderStreamsActive.Inc()
	logging.Info("Stream %s started: pid=%d profile=%s quality=%s file=%s",
		s.ID, cmd.Process.Pid, req.Profile, req.Quality, filepath.Base(req.Path))
	logging.Debug("Stream %s args: %v", s.ID, args)

	return s, mimeType, nil
}

// Serve copies s to w with the engine's timeout settings and returns the
// number of bytes delivered. It does not close s.
func (e *Engine) Serve(ctx context.Context, w http.ResponseWriter, s *Stream) (int64, error) {
	w.Header().Set("Content-Type", s.MIMEType)
	n, err := streaming.StreamWithTimeout(ctx, w, s, e.streamConfig)
	if errors.Is(err, streaming.ErrClientGone) || errors.Is(err, streaming.ErrWriteTimeout) {
		logging.Debug("Stream %s ended early: %v", s.ID, err)
	}
	return n, err
}

// ActiveStreams returns the number of streams not yet closed.
func (e *Engine) ActiveStreams() int {
	e.streamMu.Lock()
	defer e.streamMu.Unlock()
	return len(e.streams)
}

// Cleanup terminates every open stream. Used at shutdown.
func (e *Engine) Cleanup() {
	e.streamMu.Lock()
	open := make([]*Stream, 0, len(e.streams))
	for _, s := range e.streams {
		open = append(open, s)
	}
	e.streamMu.Unlock()

	var wg sync.WaitGroup
	for _, s := range open {
		wg.Add(1)
		go func(s *Stream) {
			defer wg.Done()
			logging.Info("Terminating stream %s", s.ID)
			if err := s.Close(); err != nil {
				logging.Debug("Stream %s exited with: %v", s.ID, err)
			}
		}(s)
	}
	wg.Wait()
}

func (e *Engine) forget(s *Stream) {
	e.streamMu.Lock()
	delete(e.streams, s.ID)
	e.streamMu.Unlock()
}

// buildChain collects the video filters for req. A sidecar .srt always wins;
// the embedded-subtitle probe only runs when subtitles are forced.
func (e *Engine) buildChain(ctx context.Context, req Request) (Chain, error) {
	var chain Chain

	if req.Quality == QualityHD {
		chain = append(chain, hdFilters()...)
	}

	if srt := sidecarSubtitles(req.Path); srt != "" {
		chain = append(chain, sidecarSubtitleFilter(srt))
	} else if req.ForceSubtitles {
		found, err := e.hasEmbeddedSubtitles(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		if found {
			chain = append(chain, embeddedSubtitleFilter(req.Path))
		}
	}

	return chain, nil
}

// buildArgs assembles the encoder argument vector. The start offset goes
// before the input for a fast seek and timestamps are kept from the source.
func buildArgs(req Request, chain Chain) []string {
	prof := profiles[req.Profile]

	args := []string{"-v", "error"}
	if req.Start > 0 {
		args = append(args, "-ss", formatSeconds(req.Start))
	}
	args = append(args, "-i", req.Path)
	if req.Stop > 0 {
		args = append(args, "-to", formatSeconds(req.Stop))
	}
	if req.AudioTrack != nil {
		args = append(args, "-map", "0:v:0", "-map", "0:a:"+strconv.Itoa(*req.AudioTrack))
	}
	if !chain.Empty() {
		args = append(args, "-vf", chain.String())
	}
	args = append(args, "-copyts")
	args = append(args, prof.video(req.Quality)...)
	args = append(args, prof.audio...)
	args = append(args, "-f", prof.container, "-")
	return args
}

// normalize fills defaults and rejects inconsistent requests.
func normalize(req Request) (Request, error) {
	if req.Profile == "" {
		req.Profile = ProfileWebM
	}
	if req.Quality == "" {
		req.Quality = QualityStandard
	}

	switch {
	case !req.Profile.Valid():
		return req, fmt.Errorf("%w: unknown profile %q", ErrInvalidRequest, req.Profile)
	case !req.Quality.Valid():
		return req, fmt.Errorf("%w: unknown quality %q", ErrInvalidRequest, req.Quality)
	case req.Start < 0 || req.Stop < 0:
		return req, fmt.Errorf("%w: negative offset", ErrInvalidRequest)
	case req.Stop > 0 && req.Stop <= req.Start:
		return req, fmt.Errorf("%w: stop must be after start", ErrInvalidRequest)
	case req.AudioTrack != nil && *req.AudioTrack < 0:
		return req, fmt.Errorf("%w: negative audio track", ErrInvalidRequest)
	}

	if !filepath.IsAbs(req.Path) {
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			return req, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		req.Path = abs
	}
	return req, nil
}

// checkRegular returns ErrNotFound unless path is an existing regular file.
func checkRegular(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return ErrNotFound
	}
	return nil
}

// sidecarSubtitles returns <stem>.srt next to path when it exists.
func sidecarSubtitles(path string) string {
	srt := strings.TrimSuffix(path, filepath.Ext(path)) + ".srt"
	if srt == path {
		return ""
	}
	if checkRegular(srt) != nil {
		return ""
	}
	return srt
}
