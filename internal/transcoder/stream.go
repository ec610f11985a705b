package transcoder

import (
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-share/internal/logging"
	"media-share/internal/metrics"
)

// Stream is the output of one running encoder. It is owned by a single
// request: Read returns encoded bytes and Close tears the process down.
//
// Close closes the pipe, sends SIGTERM and, if the encoder has not exited
// after the kill grace period, SIGKILL. The process is always reaped.
type Stream struct {
	ID       string
	MIMEType string

	engine *Engine
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	cancel func()

	profile Profile
	quality Quality
	started time.Time

	bytesRead atomic.Int64
	eof       atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// Read reads encoded output. A mid-stream encoder failure shows up as an
// early EOF.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	s.bytesRead.Add(int64(n))
	if errors.Is(err, io.EOF) {
		s.eof.Store(true)
	}
	return n, err
}

// Pid returns the encoder's process id.
func (s *Stream) Pid() int {
	return s.cmd.Process.Pid
}

// Close terminates the encoder and waits for it. It is safe to call more
// than once; later calls return the first result.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		completed := s.eof.Load()

		// Closing our end first makes a blocked encoder fail its next write.
		_ = s.stdout.Close()

		waitErr := make(chan error, 1)
		go func() { waitErr <- s.cmd.Wait() }()

		var err error
		if completed {
			// An encoder that finished its output gets the grace period to
			// exit on its own before it is terminated like any other.
			select {
			case err = <-waitErr:
			case <-time.After(s.engine.cfg.KillGrace):
				logging.Warn("Stream %s encoder still running after EOF, terminating", s.ID)
				s.cancel()
				err = <-waitErr
			}
			s.cancel()
			s.closeErr = err
		} else {
			s.cancel()
			err = <-waitErr
		}

		status := "aborted"
		if completed && err == nil {
			status = "completed"
		}
		if completed && err != nil {
			logging.Warn("Stream %s encoder failed: %v: %s", s.ID, err, s.stderr.Tail(5))
		}

		s.engine.forget(s)

		elapsed := time.Since(s.started)
		metrics.TranscoderStreamsTotal.WithLabelValues(string(s.profile), string(s.quality), status).Inc()
		metrics.TranscoderStreamsActive.Dec()
		metrics.TranscoderStreamDuration.WithLabelValues(string(s.profile)).Observe(elapsed.Seconds())
		metrics.TranscoderBytesStreamed.WithLabelValues(string(s.profile)).Add(float64(s.bytesRead.Load()))

		logging.Info("Stream %s %s after %v (%d bytes)", s.ID, status, elapsed.Round(time.Millisecond), s.bytesRead.Load())
	})
	return s.closeErr
}

// tailBuffer keeps the last capacity bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	cap int
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{buf: make([]byte, 0, capacity), cap: capacity}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(p) >= t.cap {
		t.buf = append(t.buf[:0], p[len(p)-t.cap:]...)
		return len(p), nil
	}
	if over := len(t.buf) + len(p) - t.cap; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

// Tail returns at most the last n lines.
func (t *tailBuffer) Tail(n int) string {
	t.mu.Lock()
	s := strings.TrimRight(string(t.buf), "\n")
	t.mu.Unlock()

	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
