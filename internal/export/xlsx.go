package export

import (
	"errors"
	"fmt"
	"io"

	"product-views/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the single worksheet of the export
	SheetName = "Logs"

	// FileName is the suggested download name
	FileName = "logs.xlsx"

	// ContentType is the xlsx MIME type
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	headerFill = "4CAF50"
)

// ErrNothingToExport is returned for an empty log sequence. No file is produced.
var ErrNothingToExport = errors.New("no logs to export")

type column struct {
	header string
	width  float64
}

var columns = []column{
	{"Product ID", 12},
	{"Product Title", 40},
	{"Product URL", 50},
	{"View Count", 15},
	{"Last View", 25},
}

// TimestampFormatter renders the Last View column.
type TimestampFormatter interface {
	Timestamp(millis int64) string
}

// WriteXLSX writes entries, in the given order, as a one-sheet workbook.
func WriteXLSX(w io.Writer, entries []domain.LogEntry, tf TimestampFormatter) (err error) {
	if len(entries) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return err
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.ProductID, e.ProductTitle, e.ProductURL, e.Count, tf.Timestamp(e.Timestamp)}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := styleBody(f, len(entries)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File) error {
	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c.header

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
	}

	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "A1", last, style)
}

func styleBody(f *excelize.File, rows int) error {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create body style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(columns), rows+1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "A2", last, style)
}
