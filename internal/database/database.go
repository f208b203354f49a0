package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"stash-tracker/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Initialize opens the event store and runs migrations. The DSN decides the
// driver: anything that looks like a SQLite file path (or ":memory:") opens
// the embedded driver, everything else is treated as a MySQL DSN.
func Initialize(databaseURL string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	if isSQLiteDSN(databaseURL) {
		db, err = gorm.Open(sqlite.Open(databaseURL), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		if strings.Contains(databaseURL, ":memory:") {
			// A pooled second connection would see a different
			// in-memory database.
			sqlDB, poolErr := db.DB()
			if poolErr != nil {
				return nil, fmt.Errorf("failed to get underlying sql.DB: %w", poolErr)
			}
			sqlDB.SetMaxOpenConns(1)
		}
	} else {
		db, err = gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
		}

		sqlDB, poolErr := db.DB()
		if poolErr != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", poolErr)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&models.StashEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate stash_events: %w", err)
	}

	log.Println("Database initialized successfully")
	return db, nil
}

func isSQLiteDSN(dsn string) bool {
	if strings.Contains(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return true
	}
	return strings.HasSuffix(dsn, ".db") || strings.HasSuffix(dsn, ".sqlite")
}
