package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

const (
	defaultComparisonScanLimit = 20
	defaultSummaryWeeks        = 8
	defaultMutationsPerMin     = 30
	defaultSessionCleanup      = 8 * time.Hour
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`
	// telemetry
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	HoneycombEnabled      bool   `toml:"honeycomb_enabled"`
	// engine
	ComparisonScanLimit    int           `toml:"comparison_scan_limit"`
	SummaryWeeks           int           `toml:"summary_weeks"`
	MutationsPerMin        int           `toml:"mutations_per_min"`
	SessionCleanupInterval time.Duration `toml:"session_cleanup_interval"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no [%s] section in config", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ComparisonScanLimit <= 0 {
		c.ComparisonScanLimit = defaultComparisonScanLimit
	}
	if c.SummaryWeeks <= 0 {
		c.SummaryWeeks = defaultSummaryWeeks
	}
	if c.MutationsPerMin <= 0 {
		c.MutationsPerMin = defaultMutationsPerMin
	}
	if c.SessionCleanupInterval <= 0 {
		c.SessionCleanupInterval = defaultSessionCleanup
	}
}

// Secrets never live in the config file.
type Secrets struct {
	SentryDSN       string `env:"SENTRY_DSN"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	HoneycombAPIKey string `env:"HONEYCOMB_API_KEY"`
	// SessionToken authenticates the CLI and MCP binaries.
	SessionToken string `env:"LIFTLOG_SESSION_TOKEN"`
	// UserID is used instead of a session by liftctl against a local database.
	UserID string `env:"LIFTLOG_USER_ID"`
}

func LoadSecrets(ctx context.Context) (*Secrets, error) {
	return LoadSecretsWith(ctx, envconfig.OsLookuper())
}

func LoadSecretsWith(ctx context.Context, lookuper envconfig.Lookuper) (*Secrets, error) {
	var s Secrets
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &s,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &s, nil
}
