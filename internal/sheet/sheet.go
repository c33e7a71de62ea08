// Package sheet loads spreadsheet workbooks into plain tables. It knows
// nothing about breeding records: it hands the reader layer trimmed
// headers and cell strings, keyed by the header row, with the original
// row numbers preserved for the rejection report.
package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is one sheet worth of raw rows.
type Table struct {
	Name    string
	Headers []string
	Rows    []Record
}

// Record is one data row. Index is the 1-based position below the header
// row, so Index 1 is the first data row the user sees in the file.
type Record struct {
	Index int
	cells map[string]string
}

// Get returns the trimmed cell under the given header, or "" when the
// column is absent.
func (r Record) Get(header string) string {
	return r.cells[header]
}

// Cells returns a copy of the row keyed by header.
func (r Record) Cells() map[string]string {
	out := make(map[string]string, len(r.cells))
	for k, v := range r.cells {
		out[k] = v
	}
	return out
}

// Workbook is an opened spreadsheet file.
type Workbook struct {
	tables map[string]*Table
	order  []string
}

// Open loads a workbook. The extension decides the format: .xlsx goes
// through excelize, .csv becomes a single-table workbook named after the
// file.
func Open(path string) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return openExcel(path)
	case ".csv":
		return openCSV(path)
	default:
		return nil, fmt.Errorf("unsupported spreadsheet format %q", filepath.Ext(path))
	}
}

// Table returns the named sheet, or nil when the workbook has none.
func (w *Workbook) Table(name string) *Table {
	return w.tables[name]
}

// Tables returns every sheet in workbook order.
func (w *Workbook) Tables() []*Table {
	out := make([]*Table, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.tables[name])
	}
	return out
}

func openExcel(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	w := &Workbook{tables: make(map[string]*Table)}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		w.add(buildTable(name, rows))
	}
	return w, nil
}

func openCSV(path string) (*Workbook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	w := &Workbook{tables: make(map[string]*Table)}
	w.add(buildTable(name, rows))
	return w, nil
}

func (w *Workbook) add(t *Table) {
	w.tables[t.Name] = t
	w.order = append(w.order, t.Name)
}

// buildTable turns raw rows into a Table. The first non-empty row is the
// header; fully blank rows are dropped, rows shorter than the header are
// padded with empty cells.
func buildTable(name string, raw [][]string) *Table {
	t := &Table{Name: name}
	start := 0
	for start < len(raw) && blankRow(raw[start]) {
		start++
	}
	if start == len(raw) {
		return t
	}

	for _, h := range raw[start] {
		t.Headers = append(t.Headers, strings.TrimSpace(h))
	}

	index := 0
	for _, row := range raw[start+1:] {
		if blankRow(row) {
			continue
		}
		index++
		cells := make(map[string]string, len(t.Headers))
		for i, header := range t.Headers {
			if header == "" {
				continue
			}
			if i < len(row) {
				cells[header] = strings.TrimSpace(row[i])
			} else {
				cells[header] = ""
			}
		}
		t.Rows = append(t.Rows, Record{Index: index, cells: cells})
	}
	return t
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// NewRecord builds a row by hand. Readers use it in tests and for retry
// queues where rows outlive their workbook.
func NewRecord(index int, cells map[string]string) Record {
	copied := make(map[string]string, len(cells))
	for k, v := range cells {
		copied[k] = strings.TrimSpace(v)
	}
	return Record{Index: index, cells: copied}
}
