package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vk-parser/platform/pkg/common/logger"
)

const (
	QueueBackendKafka = "kafka"
	QueueBackendRedis = "redis"
	QueueBackendSQS   = "sqs"
)

type Config struct {
	// Server
	ServerHost     string        `yaml:"server_host"`
	ServerPort     string        `yaml:"server_port"`
	AdminPort      string        `yaml:"admin_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxRequestBody int64         `yaml:"max_request_body"`
	RateLimitRPS   int           `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`

	// Database
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// Connection pool and per-call store timeout
	DBMaxOpenConns    int           `yaml:"db_max_open_conns"`
	DBMaxIdleConns    int           `yaml:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `yaml:"db_conn_max_lifetime"`
	DBQueryTimeout    time.Duration `yaml:"db_query_timeout"`

	// Queue
	QueueBackend string   `yaml:"queue_backend"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	// Redis
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisStream   string `yaml:"redis_stream"`

	// SQS
	SQSQueueURL string `yaml:"sqs_queue_url"`
	AWSRegion   string `yaml:"aws_region"`

	// Pagination
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Debug     bool   `yaml:"debug"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables provide a value.
func Defaults() *Config {
	return &Config{
		ServerHost:     "0.0.0.0",
		ServerPort:     "8080",
		AdminPort:      "8081",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxRequestBody: 1024 * 1024,
		RateLimitRPS:   50,
		RateLimitBurst: 100,

		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "vk_parser",
		PostgresPassword: "vk_parser",
		PostgresDB:       "vk_parser",
		PostgresSSLMode:  "disable",

		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 30 * time.Minute,
		DBQueryTimeout:    5 * time.Second,

		QueueBackend: QueueBackendKafka,
		KafkaBrokers: []string{"localhost:9092"},
		KafkaTopic:   "parser-requests",

		RedisHost:   "localhost",
		RedisPort:   "6379",
		RedisDB:     0,
		RedisStream: "parser-requests",

		AWSRegion: "us-east-1",

		DefaultPageSize: 20,
		MaxPageSize:     100,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads an optional .env file, then an optional YAML file named by
// CONFIG_FILE, then environment variables. Later sources win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			logger.Log.WithError(err).WithField("path", path).Warn("ignoring unreadable config file")
		}
	}
	cfg.applyEnv()
	return cfg
}

// ApplyFile overlays the values present in a YAML file onto cfg.
func (c *Config) ApplyFile(path string) error {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerHost = getEnv("SERVER_HOST", c.ServerHost)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.AdminPort = getEnv("ADMIN_PORT", c.AdminPort)
	c.ReadTimeout = getDuration("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getDuration("WRITE_TIMEOUT", c.WriteTimeout)
	c.MaxRequestBody = int64(getIntEnv("MAX_REQUEST_BODY_BYTES", int(c.MaxRequestBody)))
	c.RateLimitRPS = getIntEnv("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)

	c.DBMaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.DBMaxOpenConns)
	c.DBMaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.DBMaxIdleConns)
	c.DBConnMaxLifetime = getDuration("DB_CONN_MAX_LIFETIME", c.DBConnMaxLifetime)
	c.DBQueryTimeout = getDuration("DB_QUERY_TIMEOUT", c.DBQueryTimeout)

	c.QueueBackend = strings.ToLower(getEnv("QUEUE_BACKEND", c.QueueBackend))
	c.KafkaBrokers = getStringSliceEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)

	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnv("REDIS_PORT", c.RedisPort)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getIntEnv("REDIS_DB", c.RedisDB)
	c.RedisStream = getEnv("REDIS_STREAM", c.RedisStream)

	c.SQSQueueURL = getEnv("SQS_QUEUE_URL", c.SQSQueueURL)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)

	c.DefaultPageSize = getIntEnv("DEFAULT_PAGE_SIZE", c.DefaultPageSize)
	c.MaxPageSize = getIntEnv("MAX_PAGE_SIZE", c.MaxPageSize)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Debug = getBoolEnv("DEBUG", c.Debug)
}

// PostgresDSN renders the libpq keyword/value connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
