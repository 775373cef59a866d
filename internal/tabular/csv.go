package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/JonMunkholm/wms/internal/modules"
	"github.com/JonMunkholm/wms/internal/store"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToCSV renders records under the columns' plain headers.
func ToCSV(columns []modules.FieldSpec, records []store.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers(columns)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := w.Write(cells(columns, rec)); err != nil {
			return nil, fmt.Errorf("write record %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateSample renders the two-row import template.
func GenerateSample(columns []modules.FieldSpec) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, rec := range sampleRows(columns) {
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write sample: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(cleanReader(bytes.NewReader(data)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func headers(columns []modules.FieldSpec) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

func cells(columns []modules.FieldSpec, rec store.Record) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = FormatCell(c, rec[c.ValueKey()])
	}
	return out
}

func sampleRows(columns []modules.FieldSpec) [][]string {
	head := make([]string, len(columns))
	hint := make([]string, len(columns))
	for i, c := range columns {
		head[i] = AugmentedHeader(c)
		hint[i] = Guidance(c)
	}
	return [][]string{head, hint}
}

// FormatCell renders one exported value. Boolean columns render as
// Active/Inactive; nil renders as the empty string.
func FormatCell(col modules.FieldSpec, v any) string {
	if col.Type == modules.FieldBoolean {
		b, ok := v.(bool)
		switch {
		case !ok:
			return ""
		case b:
			return "Active"
		default:
			return "Inactive"
		}
	}
	return formatValue(col.Type, v)
}

func formatValue(typ modules.FieldType, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if typ == modules.FieldDate {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case pgtype.Numeric:
		return formatNumeric(x)
	case pgtype.Date:
		if !x.Valid {
			return ""
		}
		return x.Time.Format(time.DateOnly)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// formatNumeric renders a NUMERIC without exponent notation.
func formatNumeric(n pgtype.Numeric) string {
	if !n.Valid || n.NaN || n.Int == nil {
		return ""
	}
	if n.Exp >= 0 {
		v := new(big.Int).Mul(n.Int, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
		return v.String()
	}
	r := new(big.Rat).SetFrac(n.Int, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil))
	return r.FloatString(int(-n.Exp))
}
