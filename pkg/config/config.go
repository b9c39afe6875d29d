// Package config loads the YAML configuration shared by every medmind
// command, with MM_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog sources understood by CatalogConfig.Source.
const (
	CatalogSourceFile     = "file"
	CatalogSourcePostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Match    MatchConfig    `yaml:"match"`
	Advice   AdviceConfig   `yaml:"advice"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// CatalogConfig selects where the disease catalog is read from. Path is a
// .csv or .yaml file when Source is "file".
type CatalogConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// MatchConfig bounds the number of ranked results.
type MatchConfig struct {
	DefaultTopN int `yaml:"defaultTopN"`
	MaxTopN     int `yaml:"maxTopN"`
}

// AdviceConfig controls the remote text-generation endpoint. The API key is
// never stored in the file; APIKeyEnv names the variable it is read from.
// RateLimit is requests per client per minute on the HTTP surface, and zero
// disables limiting. RequestTimeout must be shorter than server.writeTimeout
// so a slow upstream still gets a 200 with an error text.
type AdviceConfig struct {
	URL            string        `yaml:"url"`
	APIKeyEnv      string        `yaml:"apiKeyEnv"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	RateLimit      int           `yaml:"rateLimit"`
}

// APIKey returns the credential from the process environment.
func (a AdviceConfig) APIKey() string {
	if a.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(a.APIKeyEnv)
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MatchEvents string `yaml:"matchEvents"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogSourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required when catalog.source is %q", CatalogSourceFile)
		}
	case CatalogSourcePostgres:
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}
	if c.Match.DefaultTopN <= 0 {
		return fmt.Errorf("match.defaultTopN must be positive, got %d", c.Match.DefaultTopN)
	}
	if c.Advice.RequestTimeout > 0 && c.Server.WriteTimeout > 0 && c.Advice.RequestTimeout >= c.Server.WriteTimeout {
		return fmt.Errorf("advice.requestTimeout (%s) must be shorter than server.writeTimeout (%s)",
			c.Advice.RequestTimeout, c.Server.WriteTimeout)
	}
	if c.Advice.RateLimit < 0 {
		return fmt.Errorf("advice.rateLimit must not be negative, got %d", c.Advice.RateLimit)
	}
	if c.Match.MaxTopN < c.Match.DefaultTopN {
		return fmt.Errorf("match.maxTopN (%d) must be >= match.defaultTopN (%d)", c.Match.MaxTopN, c.Match.DefaultTopN)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Catalog: CatalogConfig{
			Source: CatalogSourceFile,
			Path:   "diseases.csv",
		},
		Match: MatchConfig{
			DefaultTopN: 5,
			MaxTopN:     50,
		},
		Advice: AdviceConfig{
			URL:            "https://api-inference.huggingface.co/models/osanseviero/meditron-7b",
			APIKeyEnv:      "HF_API_KEY",
			RequestTimeout: 25 * time.Second,
			RateLimit:      10,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "medmind",
			User:            "medmind",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				MatchEvents: "match-events",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides applies MM_* environment variables on top of the file.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	envInt("MM_SERVER_PORT", &cfg.Server.Port)
	envList("MM_SERVER_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	envString("MM_CATALOG_SOURCE", &cfg.Catalog.Source)
	envString("MM_CATALOG_PATH", &cfg.Catalog.Path)
	envInt("MM_MATCH_DEFAULT_TOP_N", &cfg.Match.DefaultTopN)

	envString("MM_ADVICE_URL", &cfg.Advice.URL)
	envInt("MM_ADVICE_RATE_LIMIT", &cfg.Advice.RateLimit)

	envString("MM_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("MM_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("MM_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("MM_POSTGRES_USER", &cfg.Postgres.User)
	envString("MM_POSTGRES_PASSWORD", &cfg.Postgres.Password)

	envBool("MM_REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("MM_REDIS_ADDR", &cfg.Redis.Addr)
	envString("MM_REDIS_PASSWORD", &cfg.Redis.Password)

	envBool("MM_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	envList("MM_KAFKA_BROKERS", &cfg.Kafka.Brokers)

	envString("MM_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("MM_LOGGING_FORMAT", &cfg.Logging.Format)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envList(name string, dst *[]string) {
	if v := os.Getenv(name); v != "" {
		*dst = strings.Split(v, ",")
	}
}
