package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestStreamXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"director_id", "budget", "revenue"},
			{"1", "100", "300"},
			{"1", "200", "500"},
		},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"director_id", "budget", "revenue"}, rows[0])
	assert.Equal(t, []string{"1", "200", "500"}, rows[2])
}

func TestStreamXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Directors": {{"id", "director_name"}, {"1", "Greta Gerwig"}},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Directors"})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Greta Gerwig"}, rows[1])
}

func TestStreamXLSX_SheetNameNotFound(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Missing"})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

func TestStreamXLSX_SheetIndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SheetIndex: 5})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestStreamXLSX_FileNotFound(t *testing.T) {
	rowCh, errCh := StreamXLSX(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open file")
}

func TestStreamXLSX_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
}
