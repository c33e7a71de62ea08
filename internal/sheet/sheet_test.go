package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "estrus"))
	cells := [][]interface{}{
		{"sow_id", "estrus_date", "parity"},
		{"20Y1234-2", "2023-05-01", "3"},
		{"", "", ""},
		{"  2022L8871 ", "2023-05-03", ""},
	}
	for r, row := range cells {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("estrus", cell, v))
		}
	}

	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestOpenExcelWorkbook(t *testing.T) {
	w, err := Open(writeWorkbook(t))
	require.NoError(t, err)

	table := w.Table("estrus")
	require.NotNil(t, table)
	assert.Equal(t, []string{"sow_id", "estrus_date", "parity"}, table.Headers)

	// The blank row is dropped and does not consume an index.
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.Rows[0].Index)
	assert.Equal(t, "20Y1234-2", table.Rows[0].Get("sow_id"))
	assert.Equal(t, 2, table.Rows[1].Index)
	assert.Equal(t, "2022L8871", table.Rows[1].Get("sow_id"))
	assert.Equal(t, "", table.Rows[1].Get("parity"))
}

func TestOpenCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animals.csv")
	content := "tag,birth_date\n1234-2,2022-03-15\n5566,2020-06-01\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	w, err := Open(path)
	require.NoError(t, err)

	table := w.Table("animals")
	require.NotNil(t, table)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "1234-2", table.Rows[0].Get("tag"))
	assert.Equal(t, "2022-03-15", table.Rows[0].Get("birth_date"))
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open("records.ods")
	assert.Error(t, err)
}

func TestRecordMissingColumn(t *testing.T) {
	r := NewRecord(1, map[string]string{"tag": " 1234 "})
	assert.Equal(t, "1234", r.Get("tag"))
	assert.Equal(t, "", r.Get("nickname"))
}
