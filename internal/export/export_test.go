package export

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"EstateDesk/internal/models"
	"EstateDesk/internal/table"
)

func fixedClock() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func open(t *testing.T, wb *Workbook) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(wb.Data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func sampleProperties() []*models.Property {
	created := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	vacate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Property{
		{
			DocID:        "p1",
			Project:      &models.Ref{Name: "Marina Heights"},
			Owner:        &models.Ref{Name: "Hassan", Phone: "+971500000001"},
			Views:        []string{"Sea", "City"},
			VacateDate:   models.At(vacate),
			PrimaryPrice: dec("1250000.5"),
			CreatedAt:    models.At(created),
		},
		{DocID: "p2", UnitNumber: "1204"},
		{DocID: "p3", UnitNumber: "1205"},
		{DocID: "p4", UnitNumber: "1206"},
	}
}

func TestProjectFallbacks(t *testing.T) {
	t.Parallel()
	row := Project(sampleProperties()[0])
	check := map[string]any{
		"Project":        "Marina Heights",
		"Unit Number":    table.NotAvailable,
		"View":           "Sea, City",
		"Owner Phone":    "+971500000001",
		"Agent":          table.NotAvailable,
		"Vacancy Status": "Vacant",
		"Vacate Date":    "2025-06-01",
		"Listed":         "No",
		"Listing Date":   table.NotAvailable,
		"Primary Price":  1250000.5,
		"Rent":           table.NotAvailable,
	}
	for i, c := range PropertyColumns {
		want, ok := check[c.Label]
		if !ok {
			continue
		}
		if row[i] != want {
			t.Errorf("%s = %v, want %v", c.Label, row[i], want)
		}
	}
	if len(PropertyColumns) != 22 {
		t.Errorf("len(PropertyColumns) = %d, want 22", len(PropertyColumns))
	}
}

func TestPropertiesWorkbook(t *testing.T) {
	t.Parallel()
	wb, err := Properties(sampleProperties(), "inventory", WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if wb.FileName != "inventory-2025-03-10.xlsx" {
		t.Errorf("FileName = %q", wb.FileName)
	}
	f := open(t, wb)

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != PropertySheet {
		t.Fatalf("sheets = %v", sheets)
	}
	if got, _ := f.GetCellValue(PropertySheet, "A1"); got != "Project" {
		t.Errorf("A1 = %q", got)
	}
	// Unit Number is column D.
	if got, _ := f.GetCellValue(PropertySheet, "D2"); got != table.NotAvailable {
		t.Errorf("D2 = %q, want N/A", got)
	}
	if got, _ := f.GetCellValue(PropertySheet, "D3"); got != "1204" {
		t.Errorf("D3 = %q", got)
	}
	// Primary Price is column R and stays numeric.
	raw, _ := f.GetCellValue(PropertySheet, "R2", excelize.Options{RawCellValue: true})
	if v, err := strconv.ParseFloat(raw, 64); err != nil || v != 1250000.5 {
		t.Errorf("R2 raw = %q", raw)
	}
}

func TestRowStriping(t *testing.T) {
	t.Parallel()
	wb, err := Properties(sampleProperties(), "inventory", WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	f := open(t, wb)

	styleOf := func(cell string) int {
		id, err := f.GetCellStyle(PropertySheet, cell)
		if err != nil {
			t.Fatalf("GetCellStyle(%s): %v", cell, err)
		}
		return id
	}
	header, r1, r2, r3, r4 := styleOf("D1"), styleOf("D2"), styleOf("D3"), styleOf("D4"), styleOf("D5")
	if r1 != r3 {
		t.Errorf("rows 1 and 3 differ: %d vs %d", r1, r3)
	}
	if r2 != r4 || r1 == r2 {
		t.Errorf("rows 2/4 = %d/%d, row 1 = %d", r2, r4, r1)
	}
	if header == r1 || header == r2 {
		t.Errorf("header shares a data style")
	}
	st, err := f.GetStyle(header)
	if err != nil {
		t.Fatalf("GetStyle: %v", err)
	}
	if st.Font == nil || !st.Font.Bold {
		t.Errorf("header font = %+v", st.Font)
	}
}

func TestColumnWidths(t *testing.T) {
	t.Parallel()
	wb, err := Properties(sampleProperties(), "inventory", WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	f := open(t, wb)
	// "Master Development" (18) is longer than its N/A cells.
	if w, _ := f.GetColWidth(PropertySheet, "B"); w != 20 {
		t.Errorf("width B = %v, want 20", w)
	}
	// "Marina Heights" (14) beats the "Project" header (7).
	if w, _ := f.GetColWidth(PropertySheet, "A"); w != 16 {
		t.Errorf("width A = %v, want 16", w)
	}
}

func TestPropertiesColumnSubset(t *testing.T) {
	t.Parallel()
	wb, err := Properties(sampleProperties(), "inventory",
		WithClock(fixedClock), WithColumns([]string{"Unit Number", "Project"}))
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	f := open(t, wb)
	rows, err := f.GetRows(PropertySheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 || len(rows[0]) != 2 || rows[0][0] != "Project" || rows[0][1] != "Unit Number" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestTableExport(t *testing.T) {
	t.Parallel()
	records := []table.Record{
		&models.Customer{DocID: "c1", Name: "Aisha", Budget: dec("900000")},
		&models.Customer{DocID: "c2", Name: "Yusuf"},
	}
	wb, err := Table("Customers", []string{"name", "budget", "source"}, records, "customers", WithClock(fixedClock))
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	f := open(t, wb)
	rows, err := f.GetRows("Customers", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if rows[1][0] != "Aisha" || rows[1][1] != "900000" || rows[1][2] != table.NotAvailable {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][1] != table.NotAvailable {
		t.Errorf("row 2 = %v", rows[2])
	}
}
