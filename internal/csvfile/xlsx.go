package csvfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first worksheet of a spreadsheet. The first row is the
// header. Spreadsheet rows omit trailing empty cells, so short rows are
// padded to the header width before the field-count rule is applied; rows
// wider than the header are still dropped.
func ReadXLSX(path string) ([]Row, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []Row{}, nil
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return []Row{}, nil
	}

	headers := trimAll(records[0])
	data := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		record = trimAll(record)
		if isBlank(record) {
			continue
		}
		for len(record) < len(headers) {
			record = append(record, "")
		}
		data = append(data, record)
	}

	return fromRecords(headers, data), nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
