package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"media-share/internal/logging"
	"media-share/internal/metrics"
)

// VolumeResolver maps a real path to the label of the registered root that
// contains it. Labels keep the retry metrics low-cardinality.
type VolumeResolver struct {
	mu     sync.RWMutex
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash (e.g., "/srv/movies/")
	name string // volume label (e.g., "movies")
}

// NewVolumeResolver creates a resolver from label to path.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	vr := &VolumeResolver{}
	vr.Set(volumes)
	return vr
}

// Set replaces the known volumes. Longer paths win over their parents.
func (vr *VolumeResolver) Set(volumes map[string]string) {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	vr.mu.Lock()
	vr.mounts = mounts
	vr.mu.Unlock()
}

// Resolve returns the label for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	vr.mu.RLock()
	defer vr.mu.RUnlock()
	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) {
			return mount.name
		}
	}
	return "unknown"
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns defaults suited to NFS mounted directories.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// withRetry runs fn, retrying with exponential backoff while it fails with
// ESTALE. Any other error is returned at once.
func withRetry[T any](config RetryConfig, op, path string, fn func() (T, error)) (T, error) {
	volume := config.VolumeResolver.Resolve(path)
	backoff := config.InitialBackoff

	var (
		result T
		err    error
	)
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
			}
			return result, nil
		}
		if !isNFSStaleError(err) {
			return result, err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(op, volume).Inc()

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, err)
	metrics.FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	return result, err
}

// RetryFs wraps an afero.Fs so that the read paths used for listings and
// downloads survive transient stale NFS handles.
type RetryFs struct {
	afero.Fs
	config RetryConfig
}

// NewRetryFs wraps base.
func NewRetryFs(base afero.Fs, config RetryConfig) *RetryFs {
	return &RetryFs{Fs: base, config: config}
}

// Name identifies the filesystem.
func (r *RetryFs) Name() string { return "RetryFs(" + r.Fs.Name() + ")" }

// Stat retries on ESTALE.
func (r *RetryFs) Stat(name string) (os.FileInfo, error) {
	return withRetry(r.config, "stat", name, func() (os.FileInfo, error) {
		return r.Fs.Stat(name)
	})
}

// Open retries on ESTALE.
func (r *RetryFs) Open(name string) (afero.File, error) {
	return withRetry(r.config, "open", name, func() (afero.File, error) {
		return r.Fs.Open(name)
	})
}

// ReadDir lists a directory, retrying on ESTALE.
func (r *RetryFs) ReadDir(name string) ([]os.FileInfo, error) {
	return withRetry(r.config, "readdir", name, func() ([]os.FileInfo, error) {
		return afero.ReadDir(r.Fs, name)
	})
}
