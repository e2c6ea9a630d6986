package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voicecore/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-lifetime database handle, opened once in Initialize
// and injected into repositories from there.
var DB *gorm.DB

// Initialize opens the database connection with WAL-mode tuning and
// migrates every model the core owns.
func Initialize(dbPath string) error {
	var err error

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}

	dsn := fmt.Sprintf("%s?"+
		"_pragma=foreign_keys(1)&"+ // Enable foreign keys
		"_pragma=journal_mode(WAL)&"+ // Use WAL mode for better concurrency
		"_pragma=synchronous(NORMAL)&"+ // Balance between safety and performance
		"_pragma=cache_size(-64000)&"+ // 64MB cache size
		"_pragma=temp_store(MEMORY)&"+ // Store temp tables in memory
		"_pragma=mmap_size(268435456)&"+ // 256MB mmap size
		"_timeout=30000", // 30 second timeout
		dbPath)

	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Warn),
		CreateBatchSize: 100,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %v", err)
	}

	// SQLite generally works well with a small connection pool.
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := DB.AutoMigrate(
		&models.User{},
		&models.Preferences{},
		&models.KeyRecord{},
		&models.AudioObject{},
		&models.Job{},
		&models.Transcript{},
		&models.DailySummary{},
		&models.CreditAccount{},
		&models.UsageRecord{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %v", err)
	}

	// Lookup index (partial on kind, not unique) for the "at most one
	// non-Failed DailySummary job per (user_id, summary_date)" rule of
	// spec invariant 3. The storage layer does not enforce that rule: the
	// scheduler checks JobRepository.ExistsActiveDailySummary before it
	// inserts, since SQLite can't express a partial unique index
	// excluding one enum value without a generated column.
	if err := DB.Exec(
		"CREATE INDEX IF NOT EXISTS idx_jobs_daily_summary_lookup ON jobs(user_id, summary_date, status) WHERE kind = 'daily_summary'",
	).Error; err != nil {
		return fmt.Errorf("failed to create daily summary lookup index: %v", err)
	}

	return nil
}

// Close closes the database connection gracefully.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	DB = nil
	return err
}

// HealthCheck performs a health check on the database connection.
func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %v", err)
	}
	return nil
}

// GetConnectionStats returns database connection pool statistics.
func GetConnectionStats() sql.DBStats {
	if DB == nil {
		return sql.DBStats{}
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}
