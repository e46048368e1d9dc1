package ingest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ignite/bottler-outreach/internal/report"
)

func TestCleanStripsBOM(t *testing.T) {
	in := append([]byte{0xef, 0xbb, 0xbf}, []byte("bottler,sub-bottler\n")...)
	out := Clean(in)
	if !bytes.Equal(out, []byte("bottler,sub-bottler\n")) {
		t.Errorf("BOM not stripped: %q", out)
	}
}

func TestCleanRewritesSemicolons(t *testing.T) {
	out := Clean([]byte("a;b;c\n1;2;3\n"))
	if string(out) != "a,b,c\n1,2,3\n" {
		t.Errorf("semicolons not rewritten: %q", out)
	}
}

func TestCleanKeepsMixedDelimiters(t *testing.T) {
	// First line already has commas; semicolons are data, not delimiters.
	in := []byte("a,b;c\n1,2;3\n")
	if out := Clean(in); !bytes.Equal(out, in) {
		t.Errorf("payload with commas was rewritten: %q", out)
	}
}

func TestCleanBinaryPassthrough(t *testing.T) {
	// XLSX container magic followed by arbitrary bytes, semicolons included.
	in := []byte{0x50, 0x4b, 0x03, 0x04, ';', ';', 0x00, 0xff}
	if out := Clean(in); !bytes.Equal(out, in) {
		t.Errorf("binary payload modified: %v", out)
	}
}

func TestCSVParserBasic(t *testing.T) {
	data := []byte("Bottler,Sub Bottler,Machine ID\nAcme,East,1\nAcme,West,2\n")
	records, err := NewCSVParser().Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0][0].Key != "Bottler" || records[0][0].Value != "Acme" {
		t.Errorf("first cell = %+v", records[0][0])
	}
	if records[1][1].Value != "West" {
		t.Errorf("second record sub bottler = %v", records[1][1].Value)
	}
}

func TestCSVParserSkipsBlankRows(t *testing.T) {
	data := []byte("Bottler,Sub Bottler\nAcme,East\n,\n  ,\nAcme,West\n")
	records, err := NewCSVParser().Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2 (blank rows skipped)", len(records))
	}
}

func TestCSVParserEmptyPayload(t *testing.T) {
	_, err := NewCSVParser().Parse(nil)
	if !errors.Is(err, report.ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestIngestSemicolonReport(t *testing.T) {
	data := []byte("Bottler;Sub Bottler\nAcme;East\nAcme;NAN\n")
	rows, err := Ingest(data, NewCSVParser())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].SubBottler != "East" {
		t.Errorf("row 0 subbottler = %q", rows[0].SubBottler)
	}
	// NAN sub-bottler falls back to the bottler value
	if rows[1].SubBottler != "Acme" {
		t.Errorf("row 1 subbottler = %q, want Acme", rows[1].SubBottler)
	}
}

func TestIngestHeaderOnly(t *testing.T) {
	_, err := Ingest([]byte("Bottler,Sub Bottler\n"), NewCSVParser())
	if !errors.Is(err, report.ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestIngestMissingSchema(t *testing.T) {
	_, err := Ingest([]byte("Machine ID\n42\n"), NewCSVParser())
	var schemaErr *report.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("expected *report.SchemaError, got %v", err)
	}
}

func TestReadPayloadWrapsErrors(t *testing.T) {
	_, err := ReadPayload(failingReader{})
	if !errors.Is(err, ErrRead) {
		t.Errorf("expected ErrRead, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}
