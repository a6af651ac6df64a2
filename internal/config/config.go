// Package config loads huginn's YAML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
)

const (
	defaultServerPort        = 8060
	defaultServerTimeout     = 30 * time.Second
	defaultShutdownTimeout   = 15 * time.Second
	defaultDatabasePort      = 5432
	defaultMaxOpenConns      = 25
	defaultMaxIdleConns      = 5
	defaultConnMaxLifetime   = 5 * time.Minute
	defaultRedisAddress      = "localhost:6379"
	defaultElasticURL        = "http://localhost:9200"
	defaultElasticIndex      = "huginn_pages"
	defaultUserAgent         = "HuginnBot/1.0 (+https://huginn.local)"
	defaultRequestTimeout    = 30 * time.Second
	defaultRetryDelay        = 500 * time.Millisecond
	defaultWorkersPerRun     = 5
	defaultMaxConcurrentRuns = 10
	defaultMaxPages          = 100
	defaultMaxDepth          = 3
	defaultContextRadius     = 50
	defaultRunTimeout        = 30 * time.Minute
	defaultRequestsPerSecond = 5.0
	defaultMaxBodyBytes      = 10 * 1024 * 1024
	defaultSchedulerSpec     = "@every 1m"
)

// Config is the root configuration of the huginn service.
type Config struct {
	Debug         bool                `env:"APP_DEBUG" yaml:"debug"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Redis         RedisConfig         `yaml:"redis"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Scanner       ScannerConfig       `yaml:"scanner"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Logging       logger.Config       `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `env:"SERVER_PORT"  yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// URL renders the database settings as a postgres:// URL for golang-migrate.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

type RedisConfig struct {
	Address      string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password     string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB           int    `env:"REDIS_DB"             yaml:"db"`
	Enabled      bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
	MaxStreamLen int64  `yaml:"max_stream_len"`
}

type ElasticsearchConfig struct {
	URL     string `env:"ELASTICSEARCH_URL"     yaml:"url"`
	Index   string `env:"ELASTICSEARCH_INDEX"   yaml:"index"`
	Enabled bool   `env:"ELASTICSEARCH_ENABLED" yaml:"enabled"`
}

// ScannerConfig bounds crawling behaviour.
type ScannerConfig struct {
	UserAgent         string        `env:"SCANNER_USER_AGENT"      yaml:"user_agent"`
	RequestTimeout    time.Duration `env:"SCANNER_REQUEST_TIMEOUT" yaml:"request_timeout"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	WorkersPerRun     int           `env:"SCANNER_WORKERS"         yaml:"workers_per_run"`
	MaxConcurrentRuns int           `env:"SCANNER_MAX_RUNS"        yaml:"max_concurrent_runs"`
	DefaultMaxPages   int           `yaml:"default_max_pages"`
	DefaultMaxDepth   int           `yaml:"default_max_depth"`
	ContextRadius     int           `yaml:"context_radius"`
	RunTimeout        time.Duration `env:"SCANNER_RUN_TIMEOUT"     yaml:"run_timeout"`
	RespectRobots     *bool         `yaml:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
}

// RobotsEnabled reports whether robots.txt should be honoured (default true).
func (s ScannerConfig) RobotsEnabled() bool {
	return s.RespectRobots == nil || *s.RespectRobots
}

type SchedulerConfig struct {
	Enabled bool   `env:"SCHEDULER_ENABLED" yaml:"enabled"`
	Spec    string `env:"SCHEDULER_SPEC"    yaml:"spec"`
}

// Validate checks required fields and bounds.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Scanner.WorkersPerRun <= 0 {
		return errors.New("scanner.workers_per_run must be positive")
	}
	if c.Scanner.MaxConcurrentRuns <= 0 {
		return errors.New("scanner.max_concurrent_runs must be positive")
	}
	if c.Scanner.ContextRadius < 0 {
		return errors.New("scanner.context_radius must not be negative")
	}
	return nil
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path, SetDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills every unset field with its default.
func SetDefaults(cfg *Config) {
	setServerDefaults(&cfg.Server)
	setDatabaseDefaults(&cfg.Database)
	setScannerDefaults(&cfg.Scanner)

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Elasticsearch.URL == "" {
		cfg.Elasticsearch.URL = defaultElasticURL
	}
	if cfg.Elasticsearch.Index == "" {
		cfg.Elasticsearch.Index = defaultElasticIndex
	}
	if cfg.Scheduler.Spec == "" {
		cfg.Scheduler.Spec = defaultSchedulerSpec
	}
	if cfg.Debug && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	cfg.Logging.SetDefaults()
}

func setServerDefaults(s *ServerConfig) {
	if s.Port == 0 {
		s.Port = defaultServerPort
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultServerTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultServerTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = defaultShutdownTimeout
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"http://localhost:3000"}
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = defaultDatabasePort
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = defaultMaxOpenConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultConnMaxLifetime
	}
}

func setScannerDefaults(s *ScannerConfig) {
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = defaultRequestTimeout
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = defaultRetryDelay
	}
	if s.WorkersPerRun == 0 {
		s.WorkersPerRun = defaultWorkersPerRun
	}
	if s.MaxConcurrentRuns == 0 {
		s.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
	if s.DefaultMaxPages == 0 {
		s.DefaultMaxPages = defaultMaxPages
	}
	if s.DefaultMaxDepth == 0 {
		s.DefaultMaxDepth = defaultMaxDepth
	}
	if s.ContextRadius == 0 {
		s.ContextRadius = defaultContextRadius
	}
	if s.RunTimeout == 0 {
		s.RunTimeout = defaultRunTimeout
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = defaultRequestsPerSecond
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = defaultMaxBodyBytes
	}
}
