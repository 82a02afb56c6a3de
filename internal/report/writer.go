package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

// Writer replaces the whole destination with rows on every call.
type Writer interface {
	Write(rows []Row) error
	Path() string
	Close() error
}

// NewWriter picks a writer from format, or from the extension of path when
// format is empty.
func NewWriter(path, format string) (Writer, error) {
	if format == "" {
		format = FormatFromPath(path)
	}

	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVWriter(path), nil
	case FormatXLSX, "excel":
		return NewXLSXWriter(path), nil
	case FormatSQLite, "db", "sqlite3":
		return NewSQLiteWriter(path)
	default:
		return nil, fmt.Errorf("%w: %q for %s", ErrUnknownFormat, format, path)
	}
}

func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return ""
	}
}

// replaceFile writes through a temporary sibling and renames it over path, so
// a reader never sees a half-written report.
func replaceFile(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmp := tmpFile.Name()
	tmpFile.Close()

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
