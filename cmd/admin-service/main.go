// Command admin-service serves the operator views over parser requests and
// owns schema bootstrap.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vk-parser/platform/pkg/common/config"
	"github.com/vk-parser/platform/pkg/common/logger"
)

var (
	apiAddress string
	apiPort    string
	logLevel   string
	logFormat  string
	poolSize   int
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "admin-service",
	Short: "VK parser admin API",
	Long:  "Admin API for inspecting parser requests and their per-type status statistics.",
}

func init() {
	bindFlags(rootCmd)
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&apiAddress, "api-address", "", "Address to listen on (overrides SERVER_HOST)")
	flags.StringVar(&apiPort, "api-port", "", "Port to listen on (overrides ADMIN_PORT)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: json or plain")
	flags.IntVar(&poolSize, "pool-size", 0, "Maximum open database connections")
	flags.BoolVar(&debug, "debug", false, "Log SQL statements and debug messages")
}

// loadConfig applies command line flags on top of the environment config.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()

	flags := cmd.Flags()
	if flags.Changed("api-address") {
		cfg.ServerHost = apiAddress
	}
	if flags.Changed("api-port") {
		cfg.AdminPort = apiPort
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("pool-size") && poolSize > 0 {
		cfg.DBMaxOpenConns = poolSize
		if cfg.DBMaxIdleConns > poolSize {
			cfg.DBMaxIdleConns = poolSize
		}
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	logger.InitWith(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
