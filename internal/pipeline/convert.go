package pipeline

// convert.go turns raw cell text into typed record values.
//
// Spreadsheet exports are messy: numbers arrive with currency symbols and
// thousands separators, dates in whichever locale the author used.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/wms/internal/modules"
)

// twoDigitYearPivot: two-digit years landing more than this many years in the
// future are moved back a century.
const twoDigitYearPivot = 20

var (
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "02-Jan-2006",
		"20060102",
		time.RFC3339,
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

var truthy = map[string]bool{"true": true, "1": true, "yes": true, "active": true}

// parseBoolean is case-insensitive; anything outside the truthy set is false.
func parseBoolean(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

func parseInteger(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// parseDecimal accepts currency symbols, thousands separators and the
// accounting "(123.45)" negative form.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if negative {
		f = -f
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	pivot := time.Now().Year() + twoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised date")
}

// isBlank reports whether an optional value should be stored as null.
func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "N/A")
}

// coerce converts raw into the column's type. Text is trimmed and kept.
func coerce(col modules.FieldSpec, raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	switch col.Type {
	case modules.FieldBoolean:
		return parseBoolean(raw), nil
	case modules.FieldInteger:
		n, err := parseInteger(raw)
		if err != nil {
			return nil, fmt.Errorf("Invalid integer '%s' for column '%s'.", raw, col.Header)
		}
		return n, nil
	case modules.FieldDecimal:
		f, err := parseDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("Invalid number '%s' for column '%s'.", raw, col.Header)
		}
		return f, nil
	case modules.FieldDate:
		t, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("Invalid date '%s' for column '%s'.", raw, col.Header)
		}
		return t, nil
	default:
		return raw, nil
	}
}
