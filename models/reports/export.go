package reports

import (
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/utils"
)

var ErrNothingToExport = errors.New("nothing to export")

// Table is an export-ready copy of a filtered and sorted record set:
// every cell already holds its on-screen display string.
type Table struct {
	Title       string
	Context     string
	GeneratedAt time.Time
	Headers     []string
	Rows        [][]string
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Filename is the download name for the given extension, e.g. "Sales-Report.xlsx".
func (t Table) Filename(ext string) string {
	return utils.SanitizeFilename(t.Title) + "." + ext
}

// BuildTable resolves the display value of every field for every record, in order.
func BuildTable(title, context string, records []models.Record, fields []models.FieldDescriptor, refs models.RefResolver) Table {
	t := Table{
		Title:       title,
		Context:     context,
		GeneratedAt: time.Now(),
		Headers:     make([]string, len(fields)),
		Rows:        make([][]string, 0, len(records)),
	}
	for i, f := range fields {
		t.Headers[i] = f.Label
		if t.Headers[i] == "" {
			t.Headers[i] = f.Key
		}
	}
	for _, r := range records {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = f.Display(r, refs)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

var cellFlattener = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// ExportClipboard renders the table as tab-separated text with a header row.
func ExportClipboard(t Table) (string, error) {
	if t.Empty() {
		return "", ErrNothingToExport
	}
	var b strings.Builder
	writeTSVRow(&b, t.Headers)
	for _, row := range t.Rows {
		writeTSVRow(&b, row)
	}
	return b.String(), nil
}

func writeTSVRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(cellFlattener.Replace(c))
	}
	b.WriteByte('\n')
}
