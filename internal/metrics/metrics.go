package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Filesystem metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)
)

// Access model metrics
var (
	LinksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_share_links_created_total",
			Help: "Total number of share links created",
		},
	)

	LinkTokenCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_share_link_token_collisions_total",
			Help: "Total number of generated link tokens that were already taken",
		},
	)

	LinkResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_link_resolutions_total",
			Help: "Total number of share link lookups by result",
		},
		[]string{"result"}, // "ok", "expired", "unknown"
	)

	PathResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_path_resolutions_total",
			Help: "Total number of virtual path resolutions by root kind",
		},
		[]string{"root"}, // "shared", "private"
	)
)

// Transcoder metrics
var (
	TranscoderStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_transcoder_streams_total",
			Help: "Total number of transcode streams by profile, quality and status",
		},
		[]string{"profile", "quality", "status"},
	)

	TranscoderStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_transcoder_streams_active",
			Help: "Number of encoder processes currently running",
		},
	)

	TranscoderStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_transcoder_stream_duration_seconds",
			Help:    "Lifetime of encoder processes in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"profile"},
	)

	TranscoderBytesStreamed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_transcoder_bytes_streamed_total",
			Help: "Total bytes read from encoder processes",
		},
		[]string{"profile"},
	)

	TranscoderProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_share_transcoder_probe_duration_seconds",
			Help:    "Media probe duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"}, // "duration", "subtitles"
	)

	TranscoderProbeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_transcoder_probe_errors_total",
			Help: "Total number of failed media probes",
		},
		[]string{"kind"},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_share_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status"}, // method: "session", "basic", "login"
	)
)

// Library metrics
var (
	LibraryUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_users",
			Help: "Number of registered users",
		},
	)

	LibraryDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_directories",
			Help: "Number of registered shared directories",
		},
	)

	LibraryLinks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_share_links",
			Help: "Number of stored share links by state",
		},
		[]string{"state"}, // "active", "expired"
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_share_active_sessions",
			Help: "Number of unexpired login sessions",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_share_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
