package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS results (
	position          INTEGER PRIMARY KEY,
	file              TEXT NOT NULL,
	discipline        TEXT NOT NULL,
	"time"            TEXT NOT NULL,
	paradigm          TEXT NOT NULL,
	entropy           REAL NOT NULL,
	corrected_entropy REAL NOT NULL,
	mean_distance     REAL NOT NULL
)`

// SQLiteWriter keeps the report in a results table whose content is replaced
// in one transaction per write.
type SQLiteWriter struct {
	path string
	db   *sql.DB
}

func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = FULL",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare sqlite %s: %w", path, err)
		}
	}

	return &SQLiteWriter{path: path, db: db}, nil
}

func (w *SQLiteWriter) Path() string {
	return w.path
}

func (w *SQLiteWriter) Write(rows []Row) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM results"); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(position, file, discipline, "time", paradigm, entropy, corrected_entropy, mean_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.Exec(i+1, row.File, row.Discipline, row.Time, row.Paradigm,
			row.Entropy, row.CorrectedEntropy, row.MeanDistance); err != nil {
			return fmt.Errorf("insert %s: %w", row.File, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
