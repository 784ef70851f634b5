// Package testutil opens throwaway databases for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/Joss220r/competencia-Desarrollo/config"
	"github.com/Joss220r/competencia-Desarrollo/database"
)

// TestConfig returns a configuration pointing at a fresh SQLite file.
func TestConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Addr:           "127.0.0.1:0",
		DBDriver:       "sqlite3",
		DBUrl:          filepath.Join(t.TempDir(), "encuestas.sqlite"),
		SurveyShape:    "flat",
		SurveyProc:     "sp_ObtenerEncuestaPorTipo",
		SummaryProc:    "sp_ResumenEncuestaJson",
		ResponsesTable: "RespuestasUsuario",
		Migrate:        true,
		CORSOrigin:     "*",
		CallTimeout:    5 * time.Second,
	}
}

// SetupTestDB opens a migrated and seeded SQLite database, closed when the
// test ends.
func SetupTestDB(t *testing.T, cfg config.Config) *sql.DB {
	t.Helper()

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// SetupGateway returns a gateway over a fresh seeded database.
func SetupGateway(t *testing.T) (*database.Gateway, *sql.DB) {
	t.Helper()

	cfg := TestConfig(t)
	db := SetupTestDB(t, cfg)
	dialect, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		t.Fatalf("Failed to load dialect: %v", err)
	}
	return database.NewGateway(db, dialect, cfg.CallTimeout), db
}

// CountResponses counts the rows of the responses table.
func CountResponses(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM RespuestasUsuario").Scan(&n); err != nil {
		t.Fatalf("Failed to count responses: %v", err)
	}
	return n
}
