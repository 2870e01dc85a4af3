package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open creates and opens the SQLite history database under dir
func Open(dir string) (*sql.DB, error) {
	// Create the state directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create roster directory: %w", err)
	}

	dbPath := filepath.Join(dir, "roster.db")

	// Open with DSN options for SQLite pragmas
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// RunMigrations creates all necessary tables
func RunMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL,
		outcome TEXT NOT NULL,
		created_count INTEGER DEFAULT 0,
		error_count INTEGER DEFAULT 0,
		duplicate_count INTEGER DEFAULT 0,
		message TEXT,
		uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK(outcome IN ('imported', 'needs_review', 'failed', 'rejected'))
	);

	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		import_id INTEGER,
		updated INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		success_count INTEGER DEFAULT 0,
		error_count INTEGER DEFAULT 0,
		outcome TEXT NOT NULL,
		message TEXT,
		resolved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (import_id) REFERENCES imports(id) ON DELETE SET NULL,
		CHECK(outcome IN ('resolved', 'failed'))
	);

	CREATE INDEX IF NOT EXISTS idx_imports_outcome ON imports(outcome);
	CREATE INDEX IF NOT EXISTS idx_resolutions_import_id ON resolutions(import_id);
	`

	_, err := db.Exec(schema)
	return err
}
