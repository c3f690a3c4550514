// Package database provides the audit trail's database connection, selecting
// the driver from the configured URL.
package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
)

// DB wraps the standard SQL database connection.
type DB struct {
	*sql.DB
}

// DriverFor picks the driver from the data source URL. Remote libsql and
// turso schemes use the libsql driver; everything else is treated as a
// local sqlite file path.
func DriverFor(dataSourceName string) string {
	if strings.HasPrefix(dataSourceName, "libsql://") ||
		strings.HasPrefix(dataSourceName, "wss://") ||
		strings.HasPrefix(dataSourceName, "https://") {
		return "libsql"
	}
	return "sqlite3"
}

// NewConnection establishes a database connection for the given URL.
func NewConnection(dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	driverName := DriverFor(dataSourceName)
	logger.Database().Debug("Creating database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	logger.Database().Info("Database connection established", "driverName", driverName, "duration", time.Since(start))
	return &DB{db}, nil
}
