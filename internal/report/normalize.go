package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Canonical column names the pipeline depends on.
const (
	ColumnBottler    = "bottler"
	ColumnSubBottler = "sub-bottler"

	ColumnInstalledDate = "installed-date"
	ColumnLastHit       = "last-hit"

	// DerivedSubBottler is the always-present grouping column computed
	// from sub-bottler with the bottler fallback applied.
	DerivedSubBottler = "subbottler"
)

// InvalidDateLiteral is written for date-designated cells whose value
// cannot be interpreted as a date.
const InvalidDateLiteral = "Invalid Date"

// ErrEmptyDataset is returned when the source file yields no data rows.
var ErrEmptyDataset = errors.New("report contains no data rows")

// SchemaError reports mandatory columns missing from the report header.
// The check runs against the first record only; all records are assumed
// to share one schema.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("report is missing mandatory column(s): %s", strings.Join(e.Missing, ", "))
}

// CanonicalKey normalizes a raw header: non-printable-ASCII characters
// stripped, lowercased, trimmed, and runs of whitespace or underscores
// collapsed to a single hyphen. Idempotent on already-canonical keys.
func CanonicalKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}
	key := strings.TrimSpace(strings.ToLower(b.String()))

	var out strings.Builder
	out.Grow(len(key))
	inRun := false
	for _, r := range key {
		if r == ' ' || r == '_' {
			if !inRun {
				out.WriteByte('-')
				inRun = true
			}
			continue
		}
		inRun = false
		out.WriteRune(r)
	}
	return out.String()
}

// NormalizeRecords converts raw parsed records into canonical rows,
// preserving order and count. It fails with ErrEmptyDataset on empty
// input and with *SchemaError when the first record lacks the bottler or
// sub-bottler column after canonicalization.
func NormalizeRecords(records []RawRecord) ([]*Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	if err := checkSchema(records[0]); err != nil {
		return nil, err
	}

	rows := make([]*Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, normalizeRecord(rec))
	}
	return rows, nil
}

func checkSchema(first RawRecord) error {
	seen := make(map[string]bool, len(first))
	for _, cell := range first {
		seen[CanonicalKey(cell.Key)] = true
	}

	var missing []string
	for _, required := range []string{ColumnBottler, ColumnSubBottler} {
		if !seen[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func normalizeRecord(rec RawRecord) *Row {
	row := NewRow()
	for _, cell := range rec {
		key := CanonicalKey(cell.Key)
		if key == "" {
			continue
		}
		var val string
		if key == ColumnInstalledDate || key == ColumnLastHit {
			val = FormatReportDate(cell.Value)
		} else {
			val = Stringify(cell.Value)
		}
		row.Set(key, val)
	}

	row.Bottler = row.Get(ColumnBottler)
	row.SubBottler = deriveSubBottler(row.Get(ColumnSubBottler), row.Bottler)
	row.Set(ColumnBottler, row.Bottler)
	row.Set(DerivedSubBottler, row.SubBottler)
	return row
}

// deriveSubBottler applies the fallback rule: an empty, absent, or
// case-insensitive "NAN" sub-bottler is replaced by the bottler value.
func deriveSubBottler(sub, bottler string) string {
	trimmed := strings.TrimSpace(sub)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return bottler
	}
	return sub
}

// Stringify renders any parser scalar as a string. Total and
// non-panicking: nil becomes the empty string.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Date layouts accepted from admin panel exports. US-style MM/DD/YYYY is
// deliberately not guessed: it is ambiguous against DD/MM/YYYY.
var reportDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
}

// excelEpoch is day zero of the 1900 date system (accounting for the
// leap-year bug Excel inherited from Lotus 1-2-3).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// FormatReportDate renders a date-designated cell as DD-MM-YYYY. Date
// values that cannot be interpreted become the literal "Invalid Date";
// empty cells stay empty.
func FormatReportDate(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format("02-01-2006")
	case float64:
		return formatExcelSerial(t)
	case float32:
		return formatExcelSerial(float64(t))
	case int:
		return formatExcelSerial(float64(t))
	case int64:
		return formatExcelSerial(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return ""
		}
		for _, layout := range reportDateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.Format("02-01-2006")
			}
		}
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return formatExcelSerial(serial)
		}
		return InvalidDateLiteral
	default:
		return InvalidDateLiteral
	}
}

// formatExcelSerial interprets a number as an Excel 1900-system serial
// day count. Values outside a plausible range are invalid.
func formatExcelSerial(serial float64) string {
	if math.IsNaN(serial) || serial < 1 || serial > 200000 {
		return InvalidDateLiteral
	}
	days := int(serial)
	frac := serial - float64(days)
	d := excelEpoch.AddDate(0, 0, days).Add(time.Duration(frac * 24 * float64(time.Hour)))
	return d.Format("02-01-2006")
}
