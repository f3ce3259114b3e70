// Package db owns the database connection and schema migration.
package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/srdtrk/nft-ica/internal/config"
	"github.com/srdtrk/nft-ica/internal/models"
)

// Open connects to postgres and migrates the coordinator schema. The
// returned handle is the single storage handle threaded through every
// repository; there is no package-level connection.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		// Execute invocations run their own transactions; do not wrap every
		// statement in an implicit one.
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(
		&models.ContractState{},
		&models.TokenCounter{},
		&models.MintQueueItem{},
		&models.IcaBinding{},
		&models.RegisteredController{},
		&models.ChannelState{},
		&models.TransactionRecord{},
		&models.RemoteAccount{},
		&models.PendingReply{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return gdb, nil
}
