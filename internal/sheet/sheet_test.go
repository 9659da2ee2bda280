// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/paper-reader/pkg/types"
)

func strp(s string) *string { return &s }

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func TestWriteRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlsx", "extracted_20260101_000000.xlsx")
	rows := []types.Row{
		types.NewRow(types.DataRecord{Field: "材料", Value: strp("CsPbI3"), Evidence: strp("We studied CsPbI3.")}, "10.1/a"),
		types.NewRow(types.DataRecord{Field: "工艺"}, "10.1/a"),
		types.NewRow(types.DataRecord{Field: "材料", Value: strp("Si")}, "10.1/b"),
	}

	require.NoError(t, WriteRows(rows, path))

	got := readAll(t, path)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"field", "value", "evidence", "doi"}, got[0])
	assert.Equal(t, []string{"材料", "CsPbI3", "We studied CsPbI3.", "10.1/a"}, got[1])
	assert.Equal(t, []string{"工艺", "", "", "10.1/a"}, got[2])
	assert.Equal(t, []string{"材料", "Si", "", "10.1/b"}, got[3])
}

func TestWriteRowsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteRows(nil, path))

	got := readAll(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, types.RowColumns, got[0])
}

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheetName := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadIdentifiersXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doi.xlsx")
	writeWorkbook(t, path, [][]any{
		{"title", " DOI "},
		{"A", " 10.1/abc "},
		{"B", ""},
		{"C"},
		{"D", "10.2/def"},
		{"E", "10.1/abc"},
	})

	ids, err := ReadIdentifiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/abc", "10.2/def", "10.1/abc"}, ids)
}

func TestReadIdentifiersXLSXNoColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doi.xlsx")
	writeWorkbook(t, path, [][]any{{"title", "identifier"}, {"A", "10.1/abc"}})

	_, err := ReadIdentifiers(path)
	assert.ErrorIs(t, err, ErrNoIdentifierColumn)
}

func TestReadIdentifiersText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dois.txt")
	require.NoError(t, os.WriteFile(path, []byte("10.1/abc\n\n  10.2/def  \n# comment\n10.1/abc\n"), 0o644))

	ids, err := ReadIdentifiers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1/abc", "10.2/def", "10.1/abc"}, ids)
}

func TestReadIdentifiersMissing(t *testing.T) {
	_, err := ReadIdentifiers(filepath.Join(t.TempDir(), "none.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadIdentifiers(filepath.Join(t.TempDir(), "none.xlsx"))
	assert.Error(t, err)
}
