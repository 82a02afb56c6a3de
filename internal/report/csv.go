package report

import (
	"encoding/csv"
	"fmt"
	"os"
)

type CSVWriter struct {
	path string
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

func (w *CSVWriter) Path() string {
	return w.path
}

func (w *CSVWriter) Write(rows []Row) error {
	return replaceFile(w.path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}

		cw := csv.NewWriter(f)
		if err := cw.Write(Columns); err != nil {
			f.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, row := range rows {
			if err := cw.Write(row.Strings()); err != nil {
				f.Close()
				return fmt.Errorf("write csv row %s: %w", row.File, err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			f.Close()
			return fmt.Errorf("flush csv: %w", err)
		}

		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("sync csv: %w", err)
		}
		return f.Close()
	})
}

func (w *CSVWriter) Close() error {
	return nil
}
