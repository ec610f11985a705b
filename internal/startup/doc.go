// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads the environment, optionally layered over a YAML file
// named by CONFIG_PATH, and validates the result before anything starts:
//
//   - DATA_DIR: Data root (default: /data)
//   - PRIVATE_DIR: Per-user private storage (default: $DATA_DIR/files)
//   - DATABASE_DIR: Path to database directory (default: /database)
//   - PORT: HTTP server port (default: 8085)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: Encoder and prober (default: looked up in PATH)
//   - KILL_GRACE: Delay between SIGTERM and SIGKILL for encoders (default: 2s)
//   - SESSION_DURATION: Login session lifetime (default: 168h)
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST: Per-client limit on public routes
//   - CAST_ALLOWED_NETWORKS: Comma-separated CIDRs allowed on /cast
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Environment variables override values from the file.
//
// # Directory Setup
//
// The database and private storage directories are created when missing and
// must be writable. Shared directories are registered with sharectl and are
// not checked here.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Go memory limit
//   - [LogDatabaseInit]: Database initialization timing
//   - [LogAccessInit]: Users, shared directories and private storage
//   - [LogTranscoderInit]: ffmpeg and ffprobe availability
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
