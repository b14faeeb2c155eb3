package database

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/models"
)

// DriverType represents the type of database driver
type DriverType string

const (
	// DriverSQLite is the SQLite driver
	DriverSQLite DriverType = "sqlite"
	// DriverMySQL is the MySQL driver
	DriverMySQL DriverType = "mysql"
	// DriverPostgres is the PostgreSQL driver
	DriverPostgres DriverType = "postgres"
	// DriverMemory keeps everything in process memory; no GORM connection is made.
	DriverMemory DriverType = "memory"
)

// Config describes how to reach the database.
type Config struct {
	Driver DriverType
	// DSN is the connection string, or the file path for SQLite
	DSN   string
	Debug bool
}

// Models lists every table managed by the store.
var Models = []any{
	&models.User{},
	&models.Category{},
	&models.Product{},
	&models.Review{},
}

// Connect opens a GORM connection for cfg and migrates the schema.
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
		// Product.category is a plain reference; deleting a category must not
		// be blocked by, or cascade into, products.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database", cfg.Driver)
	}
	if err = db.AutoMigrate(Models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return db, nil
}

// sqliteDSN makes every transaction take the write lock when it begins.
// Deferred transactions that read before writing deadlock on lock upgrade and
// fail with "database is locked" instead of waiting for the busy timeout.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_txlock=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_txlock=immediate"
}
