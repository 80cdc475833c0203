// Package export renders the joined ledger rows as spreadsheet downloads.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/scanbill/internal/models"
)

// ErrNoData is returned when there are no rows to export.
var ErrNoData = errors.New("no data to export")

// SheetName is the worksheet holding the exported rows.
const SheetName = "Bills & Items"

// Format is an export file type.
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/vnd.sqlite3"
	}
}

// ParseFormat maps a file extension to a Format.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(s); f {
	case FormatXLSX, FormatCSV, FormatSQLite:
		return f, true
	default:
		return "", false
	}
}

// FileName is the download name for an export taken at now.
func FileName(f Format, now time.Time) string {
	return fmt.Sprintf("billing_export_%s.%s", now.Format("2006-01-02"), f)
}

var columns = []struct {
	header string
	width  float64
}{
	{"Bill ID", 10},
	{"Bill Date", 20},
	{"Bill Total Amount", 18},
	{"Product ID", 25},
	{"PSU Code", 12},
	{"Weight", 10},
	{"Item Price", 12},
}

func headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// WriteCSV writes rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []models.JoinedItem) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headers()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.BillID, 10),
			r.BillDate,
			r.TotalAmount.StringFixed(2),
			r.ProductID,
			r.PSUCode,
			r.Weight,
			r.Price.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows to a single-sheet workbook. Amounts are numeric
// cells formatted with two decimals.
func WriteXLSX(w io.Writer, rows []models.JoinedItem) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, c.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	for i, r := range rows {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.BillID,
			r.BillDate,
			r.TotalAmount.InexactFloat64(),
			r.ProductID,
			r.PSUCode,
			r.Weight,
			r.Price.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	last := len(rows) + 1
	for _, col := range []string{"C", "G"} {
		if err := f.SetCellStyle(SheetName, col+"2", fmt.Sprintf("%s%d", col, last), money); err != nil {
			return fmt.Errorf("failed to style amounts: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
