// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Search, Redis, Kafka, Postgres, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SearchConfig controls the search engine: result truncation, accumulator
// sharding, the request-tracker window, stop words, and pagination.
type SearchConfig struct {
	MaxResults      int      `yaml:"maxResults"`
	ShardCount      int      `yaml:"shardCount"`
	RequestWindow   int      `yaml:"requestWindow"`
	StopWords       []string `yaml:"stopWords"`
	StopWordsFile   string   `yaml:"stopWordsFile"`
	DefaultPageSize int      `yaml:"defaultPageSize"`
}

// RedisConfig holds Redis connection and query-cache parameters. Leaving
// Addr empty disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker and topic settings for the document-ingest
// consumer and the duplicate-removal notification producer. Leaving Brokers
// empty disables both.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest   string `yaml:"documentIngest"`
	DuplicateRemoved string `yaml:"duplicateRemoved"`
}

// PostgresConfig holds connection parameters for the document table used to
// preload the index at startup. Leaving Host empty disables the preload.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
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

// Load reads a YAML config file (if provided) and applies environment
// variable overrides. It returns a Config populated with defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:      5,
			ShardCount:      50,
			RequestWindow:   1440,
			DefaultPageSize: 5,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "searchd",
			Topics: KafkaTopics{
				DocumentIngest:   "document-ingest",
				DuplicateRemoved: "document-duplicate-removed",
			},
		},
		Postgres: PostgresConfig{
			Port:            5432,
			SSLMode:         "disable",
			Table:           "documents",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
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

func (c *Config) validate() error {
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.maxResults must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.ShardCount <= 0 {
		return fmt.Errorf("search.shardCount must be positive, got %d", c.Search.ShardCount)
	}
	if c.Search.RequestWindow <= 0 {
		return fmt.Errorf("search.requestWindow must be positive, got %d", c.Search.RequestWindow)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SEARCHD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SEARCHD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SEARCHD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SEARCHD_STOP_WORDS"); v != "" {
		cfg.Search.StopWords = strings.Fields(v)
	}
	if v := os.Getenv("SEARCHD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SEARCHD_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SEARCHD_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SEARCHD_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
}

// LoadStopWords resolves the configured stop-word list, reading
// StopWordsFile (one word per line, '#' comments) when set and merging it
// with the inline list.
func (s SearchConfig) LoadStopWords() ([]string, error) {
	words := append([]string(nil), s.StopWords...)
	if s.StopWordsFile == "" {
		return words, nil
	}
	data, err := os.ReadFile(s.StopWordsFile)
	if err != nil {
		return nil, fmt.Errorf("reading stop words file %s: %w", s.StopWordsFile, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, nil
}
