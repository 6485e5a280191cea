// Package export writes the catalog as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet XLSX exports write to.
const SheetName = "Medicines"

// ParseFormat maps a format name to a Format. The empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Columns is the export header row.
var Columns = []string{
	"ID", "Name", "Generic Name", "Brand", "Category", "Manufacturer",
	"Dosage", "Form", "Price", "Stock", "Availability", "Prescription",
	"Uses", "Side Effects", "Contraindications", "Description", "Image",
}

// record returns one medicine's cells in Columns order. Numbers stay
// numeric so spreadsheets can sort them.
func record(m catalog.Medicine) []any {
	return []any{
		m.ID, m.Name, m.GenericName, m.Brand, m.Category, m.Manufacturer,
		m.Dosage, m.Form, m.Price, m.Stock, string(m.Availability), m.Prescription,
		strings.Join(m.Uses, ", "), strings.Join(m.SideEffects, ", "),
		strings.Join(m.Contraindications, ", "), m.Description, m.Image(),
	}
}

// Write writes meds to w in format f.
func Write(w io.Writer, f Format, meds []catalog.Medicine) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, meds)
	case FormatCSV:
		return WriteCSV(w, meds)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes a header row and one row per medicine.
func WriteCSV(w io.Writer, meds []catalog.Medicine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}

	row := make([]string, len(Columns))
	for _, m := range meds {
		for i, v := range record(m) {
			row[i] = cellText(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with a bold, frozen header row.
func WriteXLSX(w io.Writer, meds []catalog.Medicine) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	// Panes must be set before the first row is streamed.
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("xlsx: freeze header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}

	for i, m := range meds {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, record(m)); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}

// cellText renders a cell for CSV.
func cellText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(t)
	}
}
