package upload

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"

	"github.com/unified-report/apps/api/internal/importer"
)

func TestReadCSVOmitsMissingCellsAndTruncates(t *testing.T) {
	data := "\ufeffProduct Name,Count,Customer\nVxRail,5\nUnity,3,Acme,extra\n,,\n"

	rows, meta, err := Read("top.csv", strings.NewReader(data), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	want := []importer.CsvRow{
		{"Product Name": "VxRail", "Count": "5"},
		{"Product Name": "Unity", "Count": "3", "Customer": "Acme"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if meta.Encoding != "utf-8-bom" || meta.Rows != 2 || meta.Format != FormatCSV {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if len(meta.SHA256) != 64 {
		t.Fatalf("expected hex sha256, got %q", meta.SHA256)
	}
}

func TestReadCSVLegacyEncodings(t *testing.T) {
	latin := []byte("System Model,Customer\nPowerEdge R750,Soci\xe9t\xe9 G\xe9n\xe9rale\n")
	rows, meta, err := Read("codes.csv", bytes.NewReader(latin), 0)
	if err != nil {
		t.Fatalf("read windows-1252: %v", err)
	}
	if meta.Encoding != "windows-1252" || rows[0]["Customer"] != "Société Générale" {
		t.Fatalf("unexpected decode %q (%s)", rows[0]["Customer"], meta.Encoding)
	}

	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	utf16, err := encoder.Bytes([]byte("Asset ID,Connectivity Status\nSN-1,Connected\n"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	rows, meta, err = Read("assets.csv", bytes.NewReader(utf16), 0)
	if err != nil {
		t.Fatalf("read utf-16: %v", err)
	}
	if meta.Encoding != "utf-16le" || rows[0]["Asset ID"] != "SN-1" {
		t.Fatalf("unexpected utf-16 rows %+v (%s)", rows, meta.Encoding)
	}
}

func TestReadDuplicateHeadersFirstNonEmptyWins(t *testing.T) {
	rows, _, err := Read("dup.csv", strings.NewReader("Count,Count\n,7\n4,9\n"), 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rows[0]["Count"] != "7" || rows[1]["Count"] != "4" {
		t.Fatalf("unexpected duplicate handling: %+v", rows)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		data     string
		maxRows  int
		want     error
	}{
		{name: "unsupported", filename: "report.pdf", data: "x", want: ErrUnsupportedType},
		{name: "empty", filename: "empty.csv", data: "  \n", want: ErrEmptyFile},
		{name: "row limit", filename: "big.csv", data: "Product\nA\nB\nC\n", maxRows: 2, want: ErrRowLimit},
		{name: "bad xlsx", filename: "broken.xlsx", data: "not a zip", want: ErrMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Read(tc.filename, strings.NewReader(tc.data), tc.maxRows)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Product", "Count"}); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]any{"PowerStore", 12}); err != nil {
		t.Fatalf("set row: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, meta, err := Read("Top Products.XLSX", buf, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []importer.CsvRow{{"Product": "PowerStore", "Count": "12"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if meta.Format != FormatXLSX || meta.Sheet != sheet {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}
