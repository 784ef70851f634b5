package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/Joss220r/competencia-Desarrollo/config"
)

func Open(cfg config.Config) (db *sql.DB, err error) {
	db, err = sql.Open(cfg.DBDriver, dsn(cfg))
	if err != nil {
		return
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if cfg.SQLite() && cfg.Migrate {
		err = migrateDB(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return
}

// dsn turns a plain SQLite file path into a DSN enabling foreign keys on every
// pooled connection; other drivers get the configured URL untouched.
func dsn(cfg config.Config) string {
	if !cfg.SQLite() {
		return cfg.DBUrl
	}

	name := cfg.DBUrl
	if !strings.HasPrefix(name, "file:") {
		name = "file:" + name
	}
	sep := "?"
	if strings.Contains(name, "?") {
		sep = "&"
	}
	switch cfg.DBDriver {
	case "sqlite3":
		return name + sep + "_foreign_keys=on&_busy_timeout=5000"
	default:
		return name + sep + "_pragma=" + url.QueryEscape("foreign_keys(1)") + "&_pragma=" + url.QueryEscape("busy_timeout(5000)")
	}
}
