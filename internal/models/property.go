package models

import "github.com/shopspring/decimal"

// Property is a unit in the inventory.
type Property struct {
	DocID             string           `json:"docId"`
	Project           *Ref             `json:"project,omitempty"`
	MasterDevelopment *Ref             `json:"masterDevelopment,omitempty"`
	SubDevelopment    *Ref             `json:"subDevelopment,omitempty"`
	UnitNumber        Text             `json:"unitNumber,omitempty"`
	PropertyType      string           `json:"propertyType,omitempty"`
	Bedrooms          Text             `json:"bedrooms,omitempty"`
	BuiltUpArea       *decimal.Decimal `json:"builtUpArea,omitempty"`
	Views             []string         `json:"views,omitempty"`
	Floor             Text             `json:"floor,omitempty"`
	Owner             *Ref             `json:"owner,omitempty"`
	Agent             *Ref             `json:"agent,omitempty"`
	Status            string           `json:"status,omitempty"`
	VacateDate        *Date            `json:"vacateDate,omitempty"`
	ListingDate       *Date            `json:"listingDate,omitempty"`
	PrimaryPrice      *decimal.Decimal `json:"primaryPrice,omitempty"`
	ResalePrice       *decimal.Decimal `json:"resalePrice,omitempty"`
	PremiumLoss       *decimal.Decimal `json:"premiumAndLoss,omitempty"`
	Rent              *decimal.Decimal `json:"rent,omitempty"`
	CreatedAt         *Date            `json:"createdAt,omitempty"`
}

func (p *Property) ID() string      { return p.DocID }
func (p *Property) Validate() error { return requireDocID(p.DocID) }

func (p *Property) Field(key string) (any, bool) {
	return fields{}.
		ref("project", p.Project).
		ref("masterDevelopment", p.MasterDevelopment).
		ref("subDevelopment", p.SubDevelopment).
		text("unitNumber", p.UnitNumber).
		str("propertyType", p.PropertyType).
		text("bedrooms", p.Bedrooms).
		money("builtUpArea", p.BuiltUpArea).
		strs("views", p.Views).
		text("floor", p.Floor).
		ref("owner", p.Owner).
		ref("agent", p.Agent).
		str("status", p.Status).
		when("vacateDate", p.VacateDate).
		when("listingDate", p.ListingDate).
		money("primaryPrice", p.PrimaryPrice).
		money("resalePrice", p.ResalePrice).
		money("premiumAndLoss", p.PremiumLoss).
		money("rent", p.Rent).
		when("createdAt", p.CreatedAt).
		get(key)
}

// OwnerPhone returns the owner's phone, or "" when unknown.
func (p *Property) OwnerPhone() string {
	if p.Owner == nil {
		return ""
	}
	return string(p.Owner.Phone)
}
