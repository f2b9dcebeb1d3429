package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	memberdomain "threegen/internal/domain/member"
	syncdomain "threegen/internal/domain/sync"
	"threegen/pkg/logger"
)

const sqliteOptions = "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// NewSQLite opens the device-local store and brings its schema up to date.
// ":memory:" opens a private in-memory database.
func NewSQLite(path string, log logger.Logger) (*gorm.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("local db handle: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:" databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := MigrateLocal(gormDB); err != nil {
		return nil, err
	}

	log.Debug("db: local store ready", "path", path)
	return gormDB, nil
}

func MigrateLocal(db *gorm.DB) error {
	if err := db.AutoMigrate(&memberdomain.Record{}, &memberdomain.Tombstone{}, &syncdomain.SyncState{}); err != nil {
		return fmt.Errorf("migrate local db: %w", err)
	}
	return nil
}

func sqliteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("local db path is required")
	}
	if path == ":memory:" {
		return "file::memory:?" + sqliteOptions, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create local db dir: %w", err)
		}
	}
	return "file:" + path + "?" + sqliteOptions, nil
}
