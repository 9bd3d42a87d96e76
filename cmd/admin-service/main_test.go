package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	bindFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	t.Setenv("ADMIN_PORT", "9000")
	t.Setenv("DB_MAX_IDLE_CONNS", "8")

	cmd := newFlagCommand(t,
		"--api-address", "127.0.0.1",
		"--api-port", "9100",
		"--log-format", "plain",
		"--pool-size", "4",
	)
	cfg := loadConfig(cmd)

	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Equal(t, "9100", cfg.AdminPort)
	assert.Equal(t, "plain", cfg.LogFormat)
	assert.Equal(t, 4, cfg.DBMaxOpenConns)
	assert.Equal(t, 4, cfg.DBMaxIdleConns)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigKeepsEnvWithoutFlags(t *testing.T) {
	t.Setenv("ADMIN_PORT", "9000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := loadConfig(newFlagCommand(t))
	assert.Equal(t, "9000", cfg.AdminPort)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigDebugForcesDebugLevel(t *testing.T) {
	cfg := loadConfig(newFlagCommand(t, "--debug", "--log-level", "error"))
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["stat"])
}
