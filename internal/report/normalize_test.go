package report

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase passthrough", "bottler", "bottler"},
		{"spaces to hyphen", "Sub Bottler", "sub-bottler"},
		{"underscores to hyphen", "installed_date", "installed-date"},
		{"run collapsed", "Last   __  Hit", "last-hit"},
		{"trimmed", "  Bottler  ", "bottler"},
		{"non-printable stripped", "bot\ttler ", "bottler"},
		{"already canonical", "days-from-last-hit", "days-from-last-hit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalKey(tt.raw); got != tt.want {
				t.Errorf("CanonicalKey(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCanonicalKeyIdempotent(t *testing.T) {
	raws := []string{"Sub Bottler", "INSTALLED_DATE", " last  hit ", "plain", "a_b c"}
	for _, raw := range raws {
		once := CanonicalKey(raw)
		twice := CanonicalKey(once)
		if once != twice {
			t.Errorf("CanonicalKey not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func record(pairs ...interface{}) RawRecord {
	var rec RawRecord
	for i := 0; i < len(pairs); i += 2 {
		rec = append(rec, RawCell{Key: pairs[i].(string), Value: pairs[i+1]})
	}
	return rec
}

func TestNormalizeRecordsEmptyDataset(t *testing.T) {
	if _, err := NormalizeRecords(nil); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestNormalizeRecordsSchemaError(t *testing.T) {
	_, err := NormalizeRecords([]RawRecord{record("Machine ID", "42")})

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Errorf("Missing = %v, want both mandatory columns", schemaErr.Missing)
	}
	if !strings.Contains(schemaErr.Error(), "sub-bottler") {
		t.Errorf("error message should name the missing column: %s", schemaErr.Error())
	}
}

func TestNormalizeRecordsSchemaUsesFirstRecordOnly(t *testing.T) {
	records := []RawRecord{
		record("Bottler", "Acme", "Sub Bottler", "East"),
		record("Machine ID", "7"), // later records may be ragged
	}
	rows, err := NormalizeRecords(records)
	if err != nil {
		t.Fatalf("NormalizeRecords: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
}

func TestSubBottlerFallback(t *testing.T) {
	tests := []struct {
		name string
		sub  interface{}
		want string
	}{
		{"kept when present", "East Division", "East Division"},
		{"empty falls back", "", "Acme"},
		{"whitespace falls back", "   ", "Acme"},
		{"NAN falls back", "NAN", "Acme"},
		{"nan lowercase falls back", "nan", "Acme"},
		{"NaN mixed case falls back", "NaN", "Acme"},
		{"nil falls back", nil, "Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := NormalizeRecords([]RawRecord{
				record("Bottler", "Acme", "Sub Bottler", tt.sub),
			})
			if err != nil {
				t.Fatalf("NormalizeRecords: %v", err)
			}
			row := rows[0]
			if row.SubBottler != tt.want {
				t.Errorf("SubBottler = %q, want %q", row.SubBottler, tt.want)
			}
			if row.Get(DerivedSubBottler) != tt.want {
				t.Errorf("subbottler column = %q, want %q", row.Get(DerivedSubBottler), tt.want)
			}
			if row.SubBottler == "" || strings.EqualFold(row.SubBottler, "nan") {
				t.Errorf("subbottler must never be empty or NAN, got %q", row.SubBottler)
			}
		})
	}
}

func TestNormalizeRecordsPreservesOrderAndLength(t *testing.T) {
	records := []RawRecord{
		record("Bottler", "A", "Sub Bottler", "X", "Machine ID", "1"),
		record("Bottler", "B", "Sub Bottler", "Y", "Machine ID", "2"),
		record("Bottler", "C", "Sub Bottler", "Z", "Machine ID", "3"),
	}
	rows, err := NormalizeRecords(records)
	if err != nil {
		t.Fatalf("NormalizeRecords: %v", err)
	}
	if len(rows) != len(records) {
		t.Fatalf("got %d rows, want %d", len(rows), len(records))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got := rows[i].Get("machine-id"); got != want {
			t.Errorf("row %d machine-id = %q, want %q", i, got, want)
		}
	}
	// Column order follows the source record
	cols := rows[0].Columns()
	if cols[0] != "bottler" || cols[1] != "sub-bottler" || cols[2] != "machine-id" {
		t.Errorf("unexpected column order: %v", cols)
	}
}

func TestFormatReportDate(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"ISO date", "2024-03-05", "05-03-2024"},
		{"ISO datetime", "2024-03-05 14:30:00", "05-03-2024"},
		{"day-first slash", "25/12/2023", "25-12-2023"},
		{"time.Time value", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "05-03-2024"},
		{"excel serial", 45356.0, "05-03-2024"},
		{"unparseable", "not a date", InvalidDateLiteral},
		{"garbage serial", -3.0, InvalidDateLiteral},
		{"empty stays empty", "", ""},
		{"nil stays empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatReportDate(tt.value); got != tt.want {
				t.Errorf("FormatReportDate(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestDateColumnsFormatted(t *testing.T) {
	rows, err := NormalizeRecords([]RawRecord{
		record("Bottler", "Acme", "Sub Bottler", "East",
			"Installed Date", "2024-03-05", "Last Hit", "bogus"),
	})
	if err != nil {
		t.Fatalf("NormalizeRecords: %v", err)
	}
	if got := rows[0].Get(ColumnInstalledDate); got != "05-03-2024" {
		t.Errorf("installed-date = %q, want 05-03-2024", got)
	}
	if got := rows[0].Get(ColumnLastHit); got != InvalidDateLiteral {
		t.Errorf("last-hit = %q, want %q", got, InvalidDateLiteral)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value interface{}
		want  string
	}{
		{nil, ""},
		{"text", "text"},
		{42, "42"},
		{3.5, "3.5"},
		{3.0, "3"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.value); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
