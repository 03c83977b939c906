package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel streams every sheet row by row. Each row with at least one
// non-blank cell becomes one tab-separated line.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		sheetLines, err := sheetRows(f, sheet)
		if err != nil {
			return "", err
		}
		lines = append(lines, sheetLines...)
	}
	return strings.Join(lines, "\n"), nil
}

func sheetRows(f *excelize.File, sheet string) ([]string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row in sheet %q: %w", sheet, err)
		}
		if line := strings.TrimSpace(strings.Join(cells, "\t")); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, rows.Error()
}
