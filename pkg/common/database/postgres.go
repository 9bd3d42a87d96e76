package database

import (
	"context"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vk-parser/platform/pkg/common/config"
	"github.com/vk-parser/platform/pkg/common/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
)

// GetPostgres opens the shared connection pool on first use.
func GetPostgres(cfg *config.Config) (*gorm.DB, error) {
	var err error
	dbOnce.Do(func() {
		gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
		if cfg.Debug {
			gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
		}
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN()), gormCfg)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to connect to PostgreSQL")
			return
		}

		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

		logger.Log.WithFields(map[string]interface{}{
			"host":           cfg.PostgresHost,
			"database":       cfg.PostgresDB,
			"max_open_conns": cfg.DBMaxOpenConns,
		}).Info("Connected to PostgreSQL")
	})

	return db, err
}

func PingPostgres(ctx context.Context) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func ClosePostgres() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
