package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"media-share/internal/access"
	"media-share/internal/database"
	"media-share/internal/filesystem"
	"media-share/internal/handlers"
	"media-share/internal/logging"
	"media-share/internal/memory"
	"media-share/internal/metrics"
	"media-share/internal/middleware"
	"media-share/internal/startup"
	"media-share/internal/transcoder"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
)

// routeLimits holds the per-client limiters of the unauthenticated routes.
type routeLimits struct {
	public *middleware.RateLimiter
	login  *middleware.RateLimiter
}

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Leave most of the container's memory to the encoders
	startup.LogMemoryConfig(memory.ConfigureFromEnv())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Initialize database
	database.SetSessionDuration(config.SessionDuration)
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Access model over the store; private storage is created per user on demand
	model := access.New(db, config.PrivateDir, nil)
	volumes := filesystem.NewVolumeResolver(nil)
	refreshVolumes(ctx, db, volumes, config.PrivateDir)
	logAccess(ctx, db, config.PrivateDir)

	go runMaintenance(ctx, db, volumes, config.PrivateDir)

	// Initialize transcoder
	startup.LogTranscoderInit(config.FFmpegPath, config.FFprobePath, config.KillGrace)
	engine := transcoder.New(transcoder.Config{
		FFmpegPath:  config.FFmpegPath,
		FFprobePath: config.FFprobePath,
		KillGrace:   config.KillGrace,
	})

	// Listings and downloads go through the stale-handle retry layer
	retryConfig := filesystem.DefaultRetryConfig()
	retryConfig.VolumeResolver = volumes
	fs := filesystem.NewRetryFs(afero.NewOsFs(), retryConfig)

	// No cast backend is built in; the cast routes answer 503.
	h := handlers.New(db, model, engine, nil, fs)

	castNetworks, err := middleware.ParseNetworks(strings.Join(config.CastAllowedNetworks, ","))
	if err != nil {
		startup.LogFatal("Invalid CAST_ALLOWED_NETWORKS: %v", err)
	}

	limits := routeLimits{
		public: middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: config.RateLimitRPS,
			Burst:             config.RateLimitBurst,
			Scope:             "public",
		}),
		login: middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: config.RateLimitRPS / 5,
			Burst:             5,
			Scope:             "login",
		}),
	}
	go limits.public.Run(ctx)
	go limits.login.Run(ctx)

	// Setup router
	router := setupRouter(h, limits, castNetworks)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply metrics middleware
	metricsHandler := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(metricsHandler)

	// Create server. Streams are long lived, so there is no write timeout;
	// the transcoder enforces its own idle and write deadlines.
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	// Metrics server
	var metricsSrv *http.Server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		collector = metrics.NewCollector(model, time.Minute)
		collector.Start()

		metricsRouter := http.NewServeMux()
		metricsRouter.Handle("/metrics", h.MetricsHandler())
		metricsRouter.HandleFunc("/health", h.HealthCheck)
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, collector, engine, cancel, done)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		CastAvailable:   false,
		LinkLifetime:    access.LinkLifetime,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers, limits routeLimits, castNetworks []*net.IPNet) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.Handle("/login", limits.login.Middleware(http.HandlerFunc(h.Login))).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")
	auth.HandleFunc("/check", h.CheckAuth).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireAuth)
	api.Use(middleware.Compression(middleware.DefaultCompressionConfig()))
	api.HandleFunc("/files", h.GetFiles).Methods("GET", "HEAD")
	api.HandleFunc("/files/{path:.*}", h.GetFiles).Methods("GET", "HEAD")
	api.HandleFunc("/links", h.CreateLink).Methods("POST")

	// Share links (public, rate limited)
	links := r.PathPrefix("/link").Subrouter()
	links.Use(limits.public.Middleware)
	links.HandleFunc("/{id}", h.GetLink).Methods("GET", "HEAD")
	links.HandleFunc("/{id}/{subpath:.*}", h.GetLink).Methods("GET", "HEAD")

	streams := r.PathPrefix("/stream").Subrouter()
	streams.Use(limits.public.Middleware)
	streams.HandleFunc("/{id}", h.StreamMedia).Methods("GET")
	streams.HandleFunc("/{id}/{subpath:.*}", h.StreamMedia).Methods("GET")

	// Cast (local network only)
	casts := r.PathPrefix("/cast").Subrouter()
	casts.Use(middleware.LocalOnly(castNetworks))
	casts.HandleFunc("", h.ListCastDevices).Methods("GET")
	casts.HandleFunc("/", h.ListCastDevices).Methods("GET")
	casts.HandleFunc("/{id}", h.Cast).Methods("GET", "POST")
	casts.HandleFunc("/{id}/{subpath:.*}", h.Cast).Methods("GET", "POST")

	return r
}

// refreshVolumes labels each registered directory for the filesystem
// retry metrics.
func refreshVolumes(ctx context.Context, db *database.Database, volumes *filesystem.VolumeResolver, privateDir string) {
	dirs, err := db.ListDirectories(ctx)
	if err != nil {
		logging.Warn("Failed to list directories: %v", err)
		return
	}
	labels := map[string]string{"private": privateDir}
	for _, d := range dirs {
		labels[d.Name] = d.Path
	}
	volumes.Set(labels)
}

func logAccess(ctx context.Context, db *database.Database, privateDir string) {
	dirs, err := db.ListDirectories(ctx)
	if err != nil {
		logging.Warn("Failed to list directories: %v", err)
	}
	users, err := db.ListUsers(ctx)
	if err != nil {
		logging.Warn("Failed to list users: %v", err)
	}
	startup.LogAccessInit(len(dirs), len(users), privateDir)
}

// runMaintenance removes expired sessions and picks up directories added
// with sharectl while the server runs.
func runMaintenance(ctx context.Context, db *database.Database, volumes *filesystem.VolumeResolver, privateDir string) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	lastSessionClean := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshVolumes(ctx, db, volumes, privateDir)
			db.UpdateDBMetrics()

			if time.Since(lastSessionClean) >= time.Hour {
				if err := db.CleanExpiredSessions(ctx); err != nil {
					logging.Warn("Failed to clean expired sessions: %v", err)
				}
				lastSessionClean = time.Now()
			}
		}
	}
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, engine *transcoder.Engine, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelTimeout()

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	// Streams never finish on their own, so they are torn down before the
	// server waits for in-flight requests.
	startup.LogShutdownStep("Terminating active streams")
	engine.Cleanup()
	startup.LogShutdownStepComplete("Active streams terminated")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	// Stops the maintenance loop and the rate limiter sweepers
	cancel()

	startup.LogShutdownComplete()
}
