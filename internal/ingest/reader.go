package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ignite/bottler-outreach/internal/report"
)

// ErrRead wraps failures while reading the uploaded payload, before any
// parsing happens.
var ErrRead = errors.New("failed to read report file")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// zipMagic marks binary spreadsheet payloads (XLSX containers). They are
// handed to the parser untouched.
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// Parser converts an uploaded payload into untyped records. Treated as a
// black box by the rest of the pipeline; the shipped implementation
// handles delimited text.
type Parser interface {
	Parse(data []byte) ([]report.RawRecord, error)
}

// ReadPayload drains the upload stream, wrapping I/O failures in ErrRead.
func ReadPayload(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return data, nil
}

// Clean pre-processes a payload before parsing. Text payloads get their
// leading BOM stripped; when the first line is semicolon-delimited (has
// semicolons but no commas) every semicolon is rewritten to a comma.
// Binary payloads pass through unmodified.
func Clean(data []byte) []byte {
	if isBinary(data) {
		return data
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	if bytes.ContainsRune(firstLine, ';') && !bytes.ContainsRune(firstLine, ',') {
		data = bytes.ReplaceAll(data, []byte{';'}, []byte{','})
	}
	return data
}

func isBinary(data []byte) bool {
	if bytes.HasPrefix(data, zipMagic) {
		return true
	}
	return !utf8.Valid(data)
}

// CSVParser parses delimited text reports. Lenient about ragged rows and
// stray quotes, the same way the admin panel's own exports are.
type CSVParser struct{}

// NewCSVParser creates a parser for delimited text payloads.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse reads the header line as column names and every following line as
// one record. Cells beyond the header width are dropped; missing trailing
// cells are simply absent from the record.
func (p *CSVParser) Parse(data []byte) ([]report.RawRecord, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, report.ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("parse report header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []report.RawRecord
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse report row %d: %w", len(records)+2, err)
		}
		if isBlankRow(fields) {
			continue
		}

		rec := make(report.RawRecord, 0, len(header))
		for i, h := range header {
			if i >= len(fields) {
				break
			}
			rec = append(rec, report.RawCell{Key: h, Value: fields[i]})
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Ingest runs the full intake path: pre-clean, parse, normalize. Errors
// from any stage abort the whole ingestion so no partial dataset is ever
// visible.
func Ingest(data []byte, p Parser) ([]*report.Row, error) {
	records, err := p.Parse(Clean(data))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, report.ErrEmptyDataset
	}
	return report.NormalizeRecords(records)
}
