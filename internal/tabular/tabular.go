// Package tabular converts between module records and CSV/XLSX files.
//
// Exports carry one header row of plain column headers. Samples carry the
// augmented headers ("Name (REQUIRED)", "Code (Optional)") that import looks
// up in parsed rows, followed by one row of guidance text.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/wms/internal/modules"
)

// Row maps a header to its raw cell value.
type Row map[string]string

// Format selects the file type of an export or sample.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value to a Format. Unknown values fall back to CSV.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatXLSX)) {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

const (
	requiredSuffix = " (REQUIRED)"
	optionalSuffix = " (Optional)"
)

// AugmentedHeader returns the header text samples emit and imports read.
func AugmentedHeader(col modules.FieldSpec) string {
	if col.Required {
		return col.Header + requiredSuffix
	}
	return col.Header + optionalSuffix
}

// Guidance returns the second sample row's hint for col.
func Guidance(col modules.FieldSpec) string {
	switch {
	case col.Required && col.ResolvesTo != nil:
		return "e.g., A valid " + col.Header
	case col.Required:
		return "(Required value)"
	default:
		return "(Leave blank or use 'N/A')"
	}
}

// ParseError reports an upload that could not be decoded at all.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseTable decodes an uploaded file into rows keyed by header text.
// Spreadsheets (.xlsx, .xls) are read from their first sheet; anything else
// is treated as CSV.
func ParseTable(data []byte, filename string) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		records, err = readXLSX(data)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	return toRows(records), nil
}

// toRows keys every record after the first by the first record's headers.
// Blank records are dropped; short records yield empty strings.
func toRows(records [][]string) []Row {
	if len(records) == 0 {
		return []Row{}
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
