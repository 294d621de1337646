// Package upload turns vendor exports (CSV or XLSX) into header-keyed rows
// for the importers.
package upload

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/unified-report/apps/api/internal/importer"
)

var (
	ErrEmptyFile       = errors.New("uploaded file is empty")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrRowLimit        = errors.New("row limit exceeded")
	ErrMalformed       = errors.New("malformed upload")
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Meta describes an upload independently of its rows.
type Meta struct {
	Filename string   `json:"filename"`
	Format   string   `json:"format"`
	Encoding string   `json:"encoding,omitempty"`
	Sheet    string   `json:"sheet,omitempty"`
	SHA256   string   `json:"sha256"`
	Size     int      `json:"size"`
	Headers  []string `json:"headers"`
	Rows     int      `json:"rows"`
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Format reports the upload format implied by filename.
func Format(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
}

// Read parses an upload into rows keyed by header. maxRows <= 0 disables
// the row limit.
func Read(filename string, r io.Reader, maxRows int) ([]importer.CsvRow, Meta, error) {
	format, err := Format(filename)
	if err != nil {
		return nil, Meta{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("read upload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, Meta{}, ErrEmptyFile
	}

	digest := sha256.Sum256(data)
	meta := Meta{
		Filename: filename,
		Format:   format,
		SHA256:   hex.EncodeToString(digest[:]),
		Size:     len(data),
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		records, meta.Sheet, err = readXLSX(data)
	default:
		records, meta.Encoding, err = readCSV(data)
	}
	if err != nil {
		return nil, meta, err
	}
	if len(records) == 0 {
		return nil, meta, ErrEmptyFile
	}

	headers := normalizeHeaderRow(records[0])
	body := records[1:]
	rows := make([]importer.CsvRow, 0, len(body))
	for _, record := range body {
		if blankRecord(record) {
			continue
		}
		rows = append(rows, buildRow(headers, record))
		if maxRows > 0 && len(rows) > maxRows {
			return nil, meta, fmt.Errorf("%w: more than %d rows", ErrRowLimit, maxRows)
		}
	}

	meta.Headers = headers
	meta.Rows = len(rows)
	return rows, meta, nil
}

func readCSV(data []byte) ([][]string, string, error) {
	decoded, encoding, err := decodeText(data)
	if err != nil {
		return nil, "", err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records := make([][]string, 0, 256)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, encoding, fmt.Errorf("%w: csv: %v", ErrMalformed, err)
		}
		records = append(records, record)
	}
	return records, encoding, nil
}

// decodeText converts an upload to UTF-8. A BOM selects UTF-8 or UTF-16;
// anything else that is not valid UTF-8 is read as Windows-1252.
func decodeText(data []byte) ([]byte, string, error) {
	var name string
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		name = "utf-8-bom"
	case bytes.HasPrefix(data, bomUTF16LE):
		name = "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		name = "utf-16be"
	case utf8.Valid(data):
		return data, "utf-8", nil
	default:
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, "", fmt.Errorf("%w: decode windows-1252: %v", ErrMalformed, err)
		}
		return decoded, "windows-1252", nil
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode %s: %v", ErrMalformed, name, err)
	}
	return decoded, name, nil
}

func readXLSX(data []byte) ([][]string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: xlsx: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", ErrEmptyFile
	}
	sheet := sheets[0]
	if active := f.GetSheetName(f.GetActiveSheetIndex()); active != "" {
		sheet = active
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, sheet, fmt.Errorf("%w: read sheet %q: %v", ErrMalformed, sheet, err)
	}
	return records, sheet, nil
}

func normalizeHeaderRow(row []string) []string {
	headers := make([]string, len(row))
	for i, col := range row {
		trimmed := strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")
		headers[i] = norm.NFC.String(trimmed)
	}
	return headers
}

// buildRow pairs a record with headers. Missing trailing cells are left
// out of the row and cells past the last header are dropped. For repeated
// headers the first non-empty cell wins.
func buildRow(headers, record []string) importer.CsvRow {
	row := make(importer.CsvRow, len(headers))
	for i, header := range headers {
		if header == "" || i >= len(record) {
			continue
		}
		value := record[i]
		if existing, ok := row[header]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		row[header] = value
	}
	return row
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
