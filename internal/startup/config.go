package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"media-share/internal/logging"
)

// Config holds all application configuration. Values come from an optional
// YAML file named by CONFIG_PATH, overridden by environment variables.
type Config struct {
	Port           string `yaml:"port" env:"PORT" env-default:"8085" validate:"required,numeric"`
	MetricsPort    string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9090" validate:"required,numeric"`
	MetricsEnabled bool   `yaml:"metrics_enabled" env:"METRICS_ENABLED" env-default:"true"`

	DataDir     string `yaml:"data_dir" env:"DATA_DIR" env-default:"/data" validate:"required"`
	DatabaseDir string `yaml:"database_dir" env:"DATABASE_DIR" env-default:"/database" validate:"required"`
	// PrivateDir holds one private storage directory per user. Defaults to
	// DATA_DIR/files.
	PrivateDir string `yaml:"private_dir" env:"PRIVATE_DIR"`

	FFmpegPath  string        `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg" validate:"required"`
	FFprobePath string        `yaml:"ffprobe_path" env:"FFPROBE_PATH" env-default:"ffprobe" validate:"required"`
	KillGrace   time.Duration `yaml:"kill_grace" env:"KILL_GRACE" env-default:"2s" validate:"gt=0"`

	SessionDuration time.Duration `yaml:"session_duration" env:"SESSION_DURATION" env-default:"168h" validate:"gte=1m"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS" env-default:"5" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST" env-default:"20" validate:"gte=1"`

	// CastAllowedNetworks are CIDRs allowed on the cast routes in addition
	// to loopback and private ranges.
	CastAllowedNetworks []string `yaml:"cast_allowed_networks" env:"CAST_ALLOWED_NETWORKS" env-separator:"," validate:"dive,cidr"`

	LogStaticFiles  bool   `yaml:"log_static_files" env:"LOG_STATIC_FILES" env-default:"false"`
	LogHealthChecks bool   `yaml:"log_health_checks" env:"LOG_HEALTH_CHECKS" env-default:"true"`
	LogLevel        string `yaml:"log_level" env:"LOG_LEVEL"`

	// Derived paths
	DatabasePath string `yaml:"-"`
}

var validate = validator.New()

// readConfig fills a Config from CONFIG_PATH (when set) and the environment,
// then validates it. It has no filesystem side effects.
func readConfig() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	if cfg.PrivateDir == "" {
		cfg.PrivateDir = filepath.Join(cfg.DataDir, "files")
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "media-share.db")
	return &cfg, nil
}

// validateConfig checks struct tags plus the rules tags cannot express.
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("LOG_LEVEL: unknown level %q", cfg.LogLevel)
		}
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// LoadConfig loads and validates configuration, prepares the data
// directories and logs the result.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	if cfg.LogLevel != "" {
		level, _ := logging.ParseLevel(cfg.LogLevel)
		logging.SetLevel(level)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		logging.Info("  CONFIG_PATH:           %s", path)
	}
	logging.Info("  DATA_DIR:              %s", cfg.DataDir)
	logging.Info("  PRIVATE_DIR:           %s", cfg.PrivateDir)
	logging.Info("  DATABASE_DIR:          %s", cfg.DatabaseDir)
	logging.Info("  PORT:                  %s", cfg.Port)
	logging.Info("  METRICS_PORT:          %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", cfg.MetricsEnabled)
	logging.Info("  FFMPEG_PATH:           %s", cfg.FFmpegPath)
	logging.Info("  FFPROBE_PATH:          %s", cfg.FFprobePath)
	logging.Info("  KILL_GRACE:            %v", cfg.KillGrace)
	logging.Info("  SESSION_DURATION:      %v", cfg.SessionDuration)
	logging.Info("  RATE_LIMIT_RPS:        %v", cfg.RateLimitRPS)
	logging.Info("  RATE_LIMIT_BURST:      %d", cfg.RateLimitBurst)
	logging.Info("  CAST_ALLOWED_NETWORKS: %s", orNone(strings.Join(cfg.CastAllowedNetworks, ",")))
	logging.Info("  LOG_STATIC_FILES:      %v", cfg.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	for _, p := range []*string{&cfg.DataDir, &cfg.PrivateDir, &cfg.DatabaseDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", *p, err)
		}
		*p = abs
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "media-share.db")

	if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(cfg.PrivateDir, "private"); err != nil {
		return nil, fmt.Errorf("private storage directory error: %w", err)
	}
	if err := testWriteAccess(cfg.PrivateDir); err != nil {
		return nil, fmt.Errorf("private storage directory is not writable: %w", err)
	}
	logging.Info("  [OK] Private storage is writable")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:    ENABLED (required)")
	logging.Info("    Metrics:     %s", enabledString(cfg.MetricsEnabled))
	logging.Info("    Rate limit:  %s", enabledString(cfg.RateLimitRPS > 0))

	return cfg, nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}
