package export

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"EstateDesk/internal/models"
	"EstateDesk/internal/table"
)

type cellKind int

const (
	kindText cellKind = iota
	kindMoney
	kindTimestamp
)

// Column is one output column of the property workbook.
type Column struct {
	Label string
	Key   string
	kind  cellKind
	value func(p *models.Property) any
}

// PropertyColumns is the fixed property export layout.
var PropertyColumns = []Column{
	{Label: "Project", Key: "project", value: func(p *models.Property) any { return refName(p.Project) }},
	{Label: "Master Development", Key: "masterDevelopment", value: func(p *models.Property) any { return refName(p.MasterDevelopment) }},
	{Label: "Sub Development", Key: "subDevelopment", value: func(p *models.Property) any { return refName(p.SubDevelopment) }},
	{Label: "Unit Number", Key: "unitNumber", value: func(p *models.Property) any { return text(p.UnitNumber) }},
	{Label: "Property Type", Key: "propertyType", value: func(p *models.Property) any { return text(p.PropertyType) }},
	{Label: "Bedrooms", Key: "bedrooms", value: func(p *models.Property) any { return text(p.Bedrooms) }},
	{Label: "Built-up Area", Key: "builtUpArea", value: func(p *models.Property) any { return amountText(p.BuiltUpArea) }},
	{Label: "View", Key: "views", value: func(p *models.Property) any { return text(strings.Join(p.Views, ", ")) }},
	{Label: "Floor", Key: "floor", value: func(p *models.Property) any { return text(p.Floor) }},
	{Label: "Owner Name", Key: "owner", value: func(p *models.Property) any { return refName(p.Owner) }},
	{Label: "Owner Phone", Key: "ownerPhone", value: func(p *models.Property) any { return text(p.OwnerPhone()) }},
	{Label: "Agent", Key: "agent", value: func(p *models.Property) any { return refName(p.Agent) }},
	{Label: "Status", Key: "status", value: func(p *models.Property) any { return text(p.Status) }},
	{Label: "Vacancy Status", Key: "vacancy", value: func(p *models.Property) any { return flag(p.VacateDate.Std(), "Vacant", "Occupied") }},
	{Label: "Vacate Date", Key: "vacateDate", value: func(p *models.Property) any { return date(p.VacateDate.Std()) }},
	{Label: "Listed", Key: "listed", value: func(p *models.Property) any { return flag(p.ListingDate.Std(), "Yes", "No") }},
	{Label: "Listing Date", Key: "listingDate", value: func(p *models.Property) any { return date(p.ListingDate.Std()) }},
	{Label: "Primary Price", Key: "primaryPrice", kind: kindMoney, value: func(p *models.Property) any { return money(p.PrimaryPrice) }},
	{Label: "Resale Price", Key: "resalePrice", kind: kindMoney, value: func(p *models.Property) any { return money(p.ResalePrice) }},
	{Label: "Premium/Loss", Key: "premiumAndLoss", kind: kindMoney, value: func(p *models.Property) any { return money(p.PremiumLoss) }},
	{Label: "Rent", Key: "rent", kind: kindMoney, value: func(p *models.Property) any { return money(p.Rent) }},
	{Label: "Created At", Key: "createdAt", kind: kindTimestamp, value: func(p *models.Property) any { return timestamp(p.CreatedAt.Std()) }},
}

// ExportRow is one projected property. Values are strings, float64 for
// money columns, or time.Time for the creation timestamp. Absent values are
// table.NotAvailable.
type ExportRow []any

// Project maps a property onto PropertyColumns.
func Project(p *models.Property) ExportRow {
	row := make(ExportRow, len(PropertyColumns))
	for i, c := range PropertyColumns {
		row[i] = c.value(p)
	}
	return row
}

func text[S ~string](s S) any {
	if strings.TrimSpace(string(s)) == "" {
		return table.NotAvailable
	}
	return string(s)
}

func refName(r *models.Ref) any {
	if r == nil {
		return table.NotAvailable
	}
	return text(r.Name)
}

func flag(t *time.Time, yes, no string) any {
	if t == nil || t.IsZero() {
		return no
	}
	return yes
}

func date(t *time.Time) any {
	if t == nil || t.IsZero() {
		return table.NotAvailable
	}
	return t.Format(time.DateOnly)
}

func timestamp(t *time.Time) any {
	if t == nil || t.IsZero() {
		return table.NotAvailable
	}
	return *t
}

func money(d *decimal.Decimal) any {
	if d == nil {
		return table.NotAvailable
	}
	return d.Round(2).InexactFloat64()
}

func amountText(d *decimal.Decimal) any {
	if d == nil {
		return table.NotAvailable
	}
	return d.String()
}
