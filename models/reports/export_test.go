package reports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmdatafocus/estate_console/models"
	"github.com/xuri/excelize/v2"
)

var salesFields = []models.FieldDescriptor{
	{Key: "booking_no", Label: "Booking #"},
	{Key: "customer", Label: "Customer", SubFields: []string{"name"}},
	{Key: "venture_id", Label: "Venture", Ref: &models.RefJoin{Table: "ventures"}},
	{Key: "sale_amount", Label: "Sale Amount", Type: models.FieldTypeCurrency},
	{Key: "booking_date", Label: "Booked On", Type: models.FieldTypeDate},
}

func salesTable(t *testing.T) Table {
	t.Helper()
	t.Setenv("CURRENCY_SYMBOL", "₹")
	t.Setenv("CURRENCY_GROUPING", "")
	t.Setenv("DATE_DISPLAY_LAYOUT", "")
	t.Setenv("REPORT_LOGO_PATH", "")

	store := models.NewRecordStore()
	store.SetReference(models.NewReferenceTable("ventures", "id", "name", []models.Record{
		{"id": "3", "name": "Green Meadows"},
	}))
	records := []models.Record{
		{"id": 1, "booking_no": "GM-001", "customer": map[string]any{"name": "Lakshmi\tDevi"}, "venture_id": "3", "sale_amount": "1250000", "booking_date": "2024-04-01"},
		{"id": 2, "booking_no": "GM-002", "customer": map[string]any{"name": "Kiran <b>"}, "venture_id": "9", "sale_amount": "₹ 75,000.5", "booking_date": nil},
	}
	return BuildTable("Sales Report", "Venture: Green Meadows", records, salesFields, store)
}

func TestBuildTable_UsesDisplayValues(t *testing.T) {
	table := salesTable(t)
	expected := [][]string{
		{"GM-001", "Lakshmi\tDevi", "Green Meadows", "₹ 12,50,000.00", "01-04-2024"},
		{"GM-002", "Kiran <b>", models.UnknownLabel, "₹ 75,000.50", ""},
	}
	if strings.Join(table.Headers, "|") != "Booking #|Customer|Venture|Sale Amount|Booked On" {
		t.Fatalf("unexpected headers %v", table.Headers)
	}
	if len(table.Rows) != len(expected) {
		t.Fatalf("expected %d rows, got %d", len(expected), len(table.Rows))
	}
	for i := range expected {
		if strings.Join(table.Rows[i], "|") != strings.Join(expected[i], "|") {
			t.Fatalf("row %d expected %q, got %q", i, expected[i], table.Rows[i])
		}
	}
	if table.Filename("xlsx") != "Sales-Report.xlsx" {
		t.Fatalf("unexpected filename %s", table.Filename("xlsx"))
	}
}

func TestExportClipboard(t *testing.T) {
	text, err := ExportClipboard(salesTable(t))
	if err != nil {
		t.Fatalf("ExportClipboard: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[1] != "GM-001\tLakshmi Devi\tGreen Meadows\t₹ 12,50,000.00\t01-04-2024" {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}

func TestExport_EmptySetIsNoop(t *testing.T) {
	empty := BuildTable("Leads", "", nil, salesFields, nil)
	if _, err := ExportClipboard(empty); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("clipboard: expected ErrNothingToExport, got %v", err)
	}
	if data, err := ExportExcel(empty); !errors.Is(err, ErrNothingToExport) || data != nil {
		t.Fatalf("excel: expected ErrNothingToExport, got %v", err)
	}
	if data, err := ExportPDF(context.Background(), empty); !errors.Is(err, ErrNothingToExport) || data != nil {
		t.Fatalf("pdf: expected ErrNothingToExport, got %v", err)
	}
}

func TestExportExcel_RowsMatchTable(t *testing.T) {
	table := salesTable(t)
	data, err := ExportExcel(table)
	if err != nil {
		t.Fatalf("ExportExcel: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(excelSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], "|") != strings.Join(table.Headers, "|") {
		t.Fatalf("header mismatch %v", rows[0])
	}
	if len(rows[2]) < 4 || rows[2][3] != "₹ 75,000.50" {
		t.Fatalf("unexpected second data row %v", rows[2])
	}
}

func TestRenderHTML_EscapesCellsAndKeepsContext(t *testing.T) {
	t.Setenv("ORGANIZATION_NAME", "Sri Sai Estates")
	html, err := RenderHTML(salesTable(t))
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{"Sri Sai Estates", "<h1>Sales Report</h1>", "Venture: Green Meadows", "<th>Booking #</th>", "Kiran &lt;b&gt;", "2 rows"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected html to contain %q", want)
		}
	}
	if strings.Contains(html, "<img") {
		t.Fatalf("no logo configured, expected no img tag")
	}
}

func TestChromePath_MissingBinary(t *testing.T) {
	t.Setenv("CHROME_PATH", "")
	t.Setenv("PATH", t.TempDir())
	if _, err := chromePath(); !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("expected ErrPDFDependencyMissing, got %v", err)
	}
}
