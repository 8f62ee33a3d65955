package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptySheet = errors.New("sheet has no data rows")
	ErrUnreadable = errors.New("file could not be read")
)

// Summary describes an accepted file before upload.
type Summary struct {
	FileName string   `json:"fileName"`
	Headers  []string `json:"headers"`
	Rows     int      `json:"rows"`
}

// Preview parses the file locally and counts data rows below the header.
func Preview(f File) (*Summary, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".xlsx":
		rows, err = parseXLSX(f.Data)
	case ".xls":
		rows, err = parseXLS(f.Data)
	case ".csv":
		rows, err = parseCSV(f.Data)
	default:
		return nil, ErrUnsupportedType
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, f.Name, err)
	}
	rows = dropBlank(rows)
	if len(rows) < 2 {
		return nil, fmt.Errorf("preview %s: %w", f.Name, ErrEmptySheet)
	}
	return &Summary{FileName: f.Name, Headers: rows[0], Rows: len(rows) - 1}, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer xl.Close()
	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	return xl.GetRows(sheets[0])
}

// parseXLS goes through a temp file because the legacy reader wants a path.
func parseXLS(data []byte) ([][]string, error) {
	tmp, err := os.CreateTemp("", "import-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	book, err := xls.Open(tmp.Name(), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptySheet
	}
	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			continue
		}
		cols := make([]string, 0, r.LastCol())
		for j := r.FirstCol(); j < r.LastCol(); j++ {
			cols = append(cols, r.Col(j))
		}
		rows = append(rows, cols)
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
