package report

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

type XLSXWriter struct {
	path string
}

func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Path() string {
	return w.path
}

func (w *XLSXWriter) Write(rows []Row) error {
	book := excelize.NewFile()
	defer book.Close()

	header := make([]any, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := book.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx cell for row %d: %w", i, err)
		}
		values := row.values()
		if err := book.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row %s: %w", row.File, err)
		}
	}

	return replaceFile(w.path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("open xlsx: %w", err)
		}
		if _, err := book.WriteTo(f); err != nil {
			f.Close()
			return fmt.Errorf("write xlsx: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("sync xlsx: %w", err)
		}
		return f.Close()
	})
}

func (w *XLSXWriter) Close() error {
	return nil
}
