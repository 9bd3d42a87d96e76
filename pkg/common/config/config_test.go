package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, QueueBackendKafka, cfg.QueueBackend)
	assert.Equal(t, 5*time.Second, cfg.DBQueryTimeout)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("DB_QUERY_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("QUEUE_BACKEND", "SQS")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	assert.True(t, cfg.Debug)
	assert.Equal(t, "db.internal", cfg.PostgresHost)
	assert.Equal(t, 750*time.Millisecond, cfg.DBQueryTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, QueueBackendSQS, cfg.QueueBackend)
	assert.Equal(t, 10, cfg.DBMaxOpenConns)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server_port: \"9000\"\nredis_stream: jobs\ndb_query_timeout: 2s\nmax_page_size: 50\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_STREAM", "from-env")

	cfg := Load()
	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 2*time.Second, cfg.DBQueryTimeout)
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, "from-env", cfg.RedisStream)
}

func TestApplyFileMissing(t *testing.T) {
	cfg := Defaults()
	err := cfg.ApplyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
}

func TestPostgresDSN(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t,
		"host=localhost user=vk_parser password=vk_parser dbname=vk_parser port=5432 sslmode=disable",
		cfg.PostgresDSN(),
	)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}
