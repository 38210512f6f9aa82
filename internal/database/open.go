package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/community"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	sqliteURLPrefix       = "sqlite:///"
	sqliteForeignKeysFlag = "_pragma=foreign_keys(1)"
)

var errMissingDatabaseURL = errors.New("database url is required")

// Open connects to the database named by url and migrates the schema. PostgreSQL DSNs select
// the postgres driver; anything else is treated as a SQLite path.
func Open(url string, logger *zap.Logger) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return nil, errMissingDatabaseURL
	}
	if isPostgresURL(trimmed) {
		return OpenPostgres(trimmed, logger)
	}
	return OpenSQLite(strings.TrimPrefix(trimmed, sqliteURLPrefix), logger)
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://") ||
		strings.HasPrefix(url, "host=")
}

// OpenSQLite establishes a SQLite connection with foreign keys enforced and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db, logger); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("database initialized", zap.String("driver", "sqlite"), zap.String("path", path))
	}
	return db, nil
}

// OpenPostgres establishes a PostgreSQL connection and performs schema migrations.
func OpenPostgres(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := migrate(db, logger); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("database initialized", zap.String("driver", "postgres"))
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "foreign_keys") {
		return path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + sqliteForeignKeysFlag
}

func migrate(db *gorm.DB, logger *zap.Logger) error {
	models := append(community.Models(), &migrationRecord{})
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}
