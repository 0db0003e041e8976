package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

//go:embed migrations/*.sql
var migrations embed.FS

// InitDB opens the database and applies the embedded migrations.
// With an empty primaryURL the database is a local SQLite file (":memory:"
// works too); otherwise it is the remote Turso database at primaryURL.
// The returned teardown closes the connection.
func InitDB(dbPath string, primaryURL string, authToken string) (*sqlx.DB, func(), error) {
	driver, dsn, dialect := "sqlite3", dbPath, "sqlite3"
	if primaryURL != "" {
		log.Info("Initializing Turso database", "url", primaryURL)
		driver, dsn, dialect = "libsql", primaryURL+"?authToken="+authToken, "turso"
	} else {
		log.Info("Initializing local-only SQLite database", "path", dbPath)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every store shares this single connection, which serializes writers
	// and keeps an in-memory database alive for the life of the process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Foreign key support is not enabled by default in SQLite
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(db, dialect); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database initialized successfully")

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	return sqlx.NewDb(db, driver), teardown, nil
}

func migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log.WithPrefix("goose"))
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
