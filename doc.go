// Package main provides the entry point for the Media Share server.
//
// Media Share is a self-hosted server for personal media. Users browse their
// private storage and the directories an administrator has shared with them,
// hand out read-only share links that expire after seven days, and play
// shared videos through a live ffmpeg transcode.
//
// # Application Lifecycle
//
//  1. Configuration Loading: environment variables, optionally layered over
//     a YAML file named by CONFIG_PATH, validated before anything starts
//  2. Database Initialization: opens the SQLite store of users, sessions,
//     directories, grants and links
//  3. Component Initialization:
//     - Access Model: resolves virtual paths and share links
//     - Transcoder: checks ffmpeg and ffprobe, runs one encoder per stream
//     - Filesystem: retries listings and downloads on stale NFS handles
//     - Metrics Collector: refreshes library gauges every minute
//  4. HTTP Server Setup: routes, rate limits and middleware
//  5. Graceful Shutdown: terminates running encoders, then drains requests
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8085):
//     - /api/auth: login, logout and session checks
//     - /api/files, /api/links: browsing and link creation (session or basic auth)
//     - /link, /stream: public share links and live streams (rate limited)
//     - /cast: handing streams to receivers (local network only)
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Health check endpoint (/health)
//
// # Environment Variables
//
//   - DATA_DIR: data root (default: /data)
//   - PRIVATE_DIR: per-user private storage (default: $DATA_DIR/files)
//   - DATABASE_DIR: directory for the SQLite database (default: /database)
//   - PORT: main HTTP server port (default: 8085)
//   - METRICS_PORT: metrics server port (default: 9090)
//   - METRICS_ENABLED: enable metrics server (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: tool locations (default: from PATH)
//   - KILL_GRACE: time an encoder gets between SIGTERM and SIGKILL (default: 2s)
//   - SESSION_DURATION: login session lifetime (default: 168h)
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST: per-client limit on public routes
//   - CAST_ALLOWED_NETWORKS: extra CIDRs allowed on /cast
//   - LOG_LEVEL: logging level (debug/info/warn/error)
//
// Users, directories and grants are managed with the sharectl command.
package main
