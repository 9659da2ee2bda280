// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sheet reads identifier lists and writes the tabular export.
package sheet

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// identifierColumn is the header, matched case-insensitively, that holds
// identifiers in an xlsx list.
const identifierColumn = "doi"

// ErrNoIdentifierColumn is returned when an xlsx list has no doi column.
var ErrNoIdentifierColumn = errors.New("no doi column")

// WriteRows writes rows to a single-sheet workbook at path, creating
// parent directories. The header row is the union of the rows' columns in
// first-seen order; nil values leave the cell empty. An empty row set
// still produces a workbook with just the default header.
func WriteRows(rows []types.Row, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	header := headerOf(rows)
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := f.GetSheetName(0)

	headerCells := make([]any, len(header))
	for i, col := range header {
		headerCells[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerCells); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for r, row := range rows {
		values := make([]any, len(header))
		for _, c := range row.Cells() {
			if c.Value != nil {
				values[index[c.Column]] = *c.Value
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", r, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", r, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func headerOf(rows []types.Row) []string {
	if len(rows) == 0 {
		return append([]string(nil), types.RowColumns...)
	}
	var header []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, c := range row.Cells() {
			if !seen[c.Column] {
				seen[c.Column] = true
				header = append(header, c.Column)
			}
		}
	}
	return header
}

// ReadIdentifiers loads an identifier list. An .xlsx file is read from the
// first sheet's doi column; anything else is read as text with one
// identifier per line. Values are trimmed, blanks dropped, and duplicates
// kept in order.
func ReadIdentifiers(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readText(path)
}

func readXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIdentifierColumn)
	}

	col := -1
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), identifierColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIdentifierColumn)
	}

	ids := []string{}
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if id := strings.TrimSpace(row[col]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func readText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ids := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ids, nil
}
