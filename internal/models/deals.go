package models

import "github.com/shopspring/decimal"

// Listing is a property offered for sale or rent.
type Listing struct {
	DocID       string           `json:"docId"`
	Property    *Ref             `json:"property,omitempty"`
	UnitNumber  Text             `json:"unitNumber,omitempty"`
	ListingType string           `json:"listingType,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Status      string           `json:"status,omitempty"`
	Agent       *Ref             `json:"agent,omitempty"`
	ListedAt    *Date            `json:"listedAt,omitempty"`
}

func (l *Listing) ID() string      { return l.DocID }
func (l *Listing) Validate() error { return requireDocID(l.DocID) }

func (l *Listing) Field(key string) (any, bool) {
	return fields{}.
		ref("property", l.Property).
		text("unitNumber", l.UnitNumber).
		str("listingType", l.ListingType).
		money("price", l.Price).
		str("status", l.Status).
		ref("agent", l.Agent).
		when("listedAt", l.ListedAt).
		get(key)
}

// Contract is a signed sale or tenancy agreement.
type Contract struct {
	DocID          string           `json:"docId"`
	ContractNumber Text             `json:"contractNumber,omitempty"`
	Property       *Ref             `json:"property,omitempty"`
	Customer       *Ref             `json:"customer,omitempty"`
	ContractType   string           `json:"contractType,omitempty"`
	Value          *decimal.Decimal `json:"value,omitempty"`
	StartDate      *Date            `json:"startDate,omitempty"`
	EndDate        *Date            `json:"endDate,omitempty"`
	Status         string           `json:"status,omitempty"`
}

func (c *Contract) ID() string      { return c.DocID }
func (c *Contract) Validate() error { return requireDocID(c.DocID) }

func (c *Contract) Field(key string) (any, bool) {
	return fields{}.
		text("contractNumber", c.ContractNumber).
		ref("property", c.Property).
		ref("customer", c.Customer).
		str("contractType", c.ContractType).
		money("value", c.Value).
		when("startDate", c.StartDate).
		when("endDate", c.EndDate).
		str("status", c.Status).
		get(key)
}

// Transaction is a payment against a contract.
type Transaction struct {
	DocID     string           `json:"docId"`
	Reference Text             `json:"reference,omitempty"`
	Contract  *Ref             `json:"contract,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Method    string           `json:"method,omitempty"`
	Status    string           `json:"status,omitempty"`
	PaidAt    *Date            `json:"paidAt,omitempty"`
}

func (t *Transaction) ID() string      { return t.DocID }
func (t *Transaction) Validate() error { return requireDocID(t.DocID) }

func (t *Transaction) Field(key string) (any, bool) {
	return fields{}.
		text("reference", t.Reference).
		ref("contract", t.Contract).
		money("amount", t.Amount).
		str("method", t.Method).
		str("status", t.Status).
		when("paidAt", t.PaidAt).
		get(key)
}
