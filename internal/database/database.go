package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Dan9191/lease-service/internal/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to PostgreSQL through lib/pq and wraps the pool in gorm
func Open(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Workers plus headroom for the lock and reconciliation calls
	sqlDB.SetMaxOpenConns(cfg.Workers + 2)
	sqlDB.SetMaxIdleConns(cfg.Workers)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	level := gormlogger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}
	return db, nil
}
