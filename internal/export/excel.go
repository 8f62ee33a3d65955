// Package export builds styled xlsx workbooks from dashboard records.
package export

import (
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"EstateDesk/internal/models"
	"EstateDesk/internal/table"
)

// PropertySheet is the only sheet of a property export.
const PropertySheet = "Properties"

const (
	timestampLayout = "2006-01-02 15:04:05"
	timestampFormat = "yyyy-mm-dd hh:mm:ss"
	numFmtTwoPlaces = 2 // built-in "0.00"

	headerFill = "#1F4E78"
	evenFill   = "#F2F2F2"
	oddFill    = "#FFFFFF"
)

// Workbook is a generated file ready for download.
type Workbook struct {
	FileName string
	Data     []byte
}

type options struct {
	now     func() time.Time
	columns []string
}

type Option func(*options)

// WithClock overrides the clock used for the file name date.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithColumns restricts the export to the given columns, named by label or
// field key. Column order follows the layout, not the argument. An empty list
// keeps every column.
func WithColumns(labels []string) Option {
	return func(o *options) { o.columns = labels }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// FileName returns "<base>-<YYYY-MM-DD>.xlsx".
func FileName(base string, now time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", base, now.Format(time.DateOnly))
}

// Properties renders records into a single "Properties" sheet.
func Properties(records []*models.Property, fileName string, opts ...Option) (*Workbook, error) {
	o := buildOptions(opts)
	keep := func(c Column) bool {
		return len(o.columns) == 0 || slices.Contains(o.columns, c.Label) || slices.Contains(o.columns, c.Key)
	}
	var cols []Column
	for _, c := range PropertyColumns {
		if keep(c) {
			cols = append(cols, c)
		}
	}
	rows := make([][]any, len(records))
	for i, p := range records {
		full := Project(p)
		for j, c := range PropertyColumns {
			if keep(c) {
				rows[i] = append(rows[i], full[j])
			}
		}
	}
	kinds := make([]cellKind, len(cols))
	labels := make([]string, len(cols))
	for i, c := range cols {
		kinds[i], labels[i] = c.kind, c.Label
	}
	return write(PropertySheet, labels, kinds, rows, FileName(fileName, o.now()))
}

// Table renders arbitrary records with the same styling. Decimal fields are
// written as money and time fields as timestamps; everything else is text.
func Table(sheet string, headers []string, records []table.Record, fileName string, opts ...Option) (*Workbook, error) {
	o := buildOptions(opts)
	if len(o.columns) > 0 {
		headers = slices.DeleteFunc(slices.Clone(headers), func(h string) bool {
			return !slices.Contains(o.columns, h)
		})
	}
	kinds := make([]cellKind, len(headers))
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = make([]any, len(headers))
		for j, h := range headers {
			v, ok := r.Field(h)
			switch t := v.(type) {
			case decimal.Decimal:
				kinds[j] = kindMoney
				rows[i][j] = t.Round(2).InexactFloat64()
			case time.Time:
				kinds[j] = kindTimestamp
				rows[i][j] = t
			default:
				if !ok {
					rows[i][j] = table.NotAvailable
					continue
				}
				rows[i][j] = table.Cell(r, h)
			}
		}
	}
	return write(sheet, headers, kinds, rows, FileName(fileName, o.now()))
}

func write(sheet string, headers []string, kinds []cellKind, rows [][]any, name string) (*Workbook, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	widths := make([]int, len(headers))
	for j, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, st.header)
		widths[j] = utf8.RuneCountInString(h)
	}

	for i, row := range rows {
		index := i + 1 // header is index 0
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, index+1)
			if err != nil {
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				continue
			}
			if n := utf8.RuneCountInString(display(v)); n > widths[j] {
				widths[j] = n
			}
			f.SetCellStyle(sheet, cell, cell, st.data(index, kinds[j], v))
		}
	}

	for j, w := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			continue
		}
		f.SetColWidth(sheet, col, col, float64(w+2))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &Workbook{FileName: name, Data: buf.Bytes()}, nil
}

func display(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', 2, 64)
	case time.Time:
		return t.Format(timestampLayout)
	default:
		return models.FormatValue(v)
	}
}
