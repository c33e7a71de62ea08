package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/jack2012aa/breeding-db-sub000/pkg/export"
)

// ReasonColumn is appended to every rejection report next to the original
// row's own columns.
const ReasonColumn = "reasons"

// Entry pairs a rejected or conflicting row with its findings.
type Entry struct {
	Sheet    string
	RowIndex int
	Row      map[string]string
	Findings Findings
}

// Sink receives rejected and conflicting rows.
type Sink interface {
	Reject(entry Entry)
}

// Collector is the batch Sink: it groups entries per sheet and renders
// them through the exporters once the run completes.
type Collector struct {
	logger  *zap.Logger
	headers map[string][]string
	entries map[string][]Entry
	order   []string
}

// NewCollector constructs a Collector.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger:  logger,
		headers: make(map[string][]string),
		entries: make(map[string][]Entry),
	}
}

// SetHeaders declares the column order of a sheet so the report mirrors
// the source layout.
func (c *Collector) SetHeaders(sheet string, headers []string) {
	if _, seen := c.headers[sheet]; !seen {
		c.order = append(c.order, sheet)
	}
	c.headers[sheet] = headers
}

// Reject records one entry.
func (c *Collector) Reject(entry Entry) {
	if _, seen := c.headers[entry.Sheet]; !seen {
		c.order = append(c.order, entry.Sheet)
	}
	c.entries[entry.Sheet] = append(c.entries[entry.Sheet], entry)
	c.logger.Debug("row rejected",
		zap.String("sheet", entry.Sheet),
		zap.Int("row", entry.RowIndex),
		zap.String("reasons", entry.Findings.Message()),
	)
}

// Total returns the number of collected entries across all sheets.
func (c *Collector) Total() int {
	n := 0
	for _, entries := range c.entries {
		n += len(entries)
	}
	return n
}

// Dataset renders one sheet's entries as an exportable table: the
// original columns followed by the consolidated reason column.
func (c *Collector) Dataset(sheet string) export.Dataset {
	headers := append(append([]string{"row"}, c.headers[sheet]...), ReasonColumn)
	rows := make([]map[string]string, 0, len(c.entries[sheet]))
	for _, entry := range c.entries[sheet] {
		row := make(map[string]string, len(entry.Row)+2)
		for k, v := range entry.Row {
			row[k] = v
		}
		row["row"] = strconv.Itoa(entry.RowIndex)
		row[ReasonColumn] = entry.Findings.Message()
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// WriteCSV writes one rejection CSV per sheet that collected entries and
// returns the created paths.
func (c *Collector) WriteCSV(dir string) ([]string, error) {
	if c.Total() == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	exporter := export.NewCSVExporter()
	var paths []string
	for _, sheet := range c.order {
		if len(c.entries[sheet]) == 0 {
			continue
		}
		data, err := exporter.Render(c.Dataset(sheet))
		if err != nil {
			return paths, fmt.Errorf("render %s report: %w", sheet, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("rejected_%s.csv", sheet))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s report: %w", sheet, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WritePDFSummary writes a one-page overview of every rejected row.
func (c *Collector) WritePDFSummary(dir string, summary []export.SummaryLine) (string, error) {
	if c.Total() == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	dataset := export.Dataset{Headers: []string{"sheet", "row", ReasonColumn}}
	for _, sheet := range c.order {
		for _, entry := range c.entries[sheet] {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"sheet":      sheet,
				"row":        strconv.Itoa(entry.RowIndex),
				ReasonColumn: entry.Findings.Message(),
			})
		}
	}
	data, err := export.NewPDFExporter().Render(dataset, "import rejections", summary)
	if err != nil {
		return "", fmt.Errorf("render pdf summary: %w", err)
	}
	path := filepath.Join(dir, "rejections_summary.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write pdf summary: %w", err)
	}
	return path, nil
}
