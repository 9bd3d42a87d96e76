package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vk-parser/platform/pkg/common/database"
	"github.com/vk-parser/platform/pkg/common/logger"
	"github.com/vk-parser/platform/pkg/parserrequest"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the parser_requests table and its indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig(cmd)
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.ClosePostgres()

		if err := parserrequest.NewRepository(db, cfg.DBQueryTimeout).AutoMigrate(); err != nil {
			return fmt.Errorf("migrating parser_requests: %w", err)
		}
		logger.Log.Info("parser_requests schema is up to date")
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Print parser request counts by type and status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig(cmd)
		db, err := database.GetPostgres(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer database.ClosePostgres()

		rows, err := parserrequest.NewRepository(db, cfg.DBQueryTimeout).Stat(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statCmd)
}
