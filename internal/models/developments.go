package models

import "github.com/shopspring/decimal"

type MasterDevelopment struct {
	DocID      string `json:"docId"`
	Name       string `json:"name,omitempty"`
	Developer  string `json:"developer,omitempty"`
	Location   string `json:"location,omitempty"`
	Status     string `json:"status,omitempty"`
	TotalUnits *int   `json:"totalUnits,omitempty"`
	CreatedAt  *Date  `json:"createdAt,omitempty"`
}

func (m *MasterDevelopment) ID() string      { return m.DocID }
func (m *MasterDevelopment) Validate() error { return requireDocID(m.DocID) }

func (m *MasterDevelopment) Field(key string) (any, bool) {
	return fields{}.
		str("name", m.Name).
		str("developer", m.Developer).
		str("location", m.Location).
		str("status", m.Status).
		num("totalUnits", m.TotalUnits).
		when("createdAt", m.CreatedAt).
		get(key)
}

type SubDevelopment struct {
	DocID             string           `json:"docId"`
	Name              string           `json:"name,omitempty"`
	MasterDevelopment *Ref             `json:"masterDevelopment,omitempty"`
	PlotStatus        string           `json:"plotStatus,omitempty"`
	Facilities        []string         `json:"facilities,omitempty"`
	BuiltUpArea       *decimal.Decimal `json:"builtUpArea,omitempty"`
	PlotArea          *decimal.Decimal `json:"plotArea,omitempty"`
	CreatedAt         *Date            `json:"createdAt,omitempty"`
}

func (s *SubDevelopment) ID() string      { return s.DocID }
func (s *SubDevelopment) Validate() error { return requireDocID(s.DocID) }

func (s *SubDevelopment) Field(key string) (any, bool) {
	return fields{}.
		str("name", s.Name).
		ref("masterDevelopment", s.MasterDevelopment).
		str("plotStatus", s.PlotStatus).
		strs("facilities", s.Facilities).
		money("builtUpArea", s.BuiltUpArea).
		money("plotArea", s.PlotArea).
		when("createdAt", s.CreatedAt).
		get(key)
}

type Project struct {
	DocID          string           `json:"docId"`
	Name           string           `json:"name,omitempty"`
	Developer      string           `json:"developer,omitempty"`
	ProjectStatus  string           `json:"projectStatus,omitempty"`
	Location       string           `json:"location,omitempty"`
	CompletionYear *int             `json:"completionYear,omitempty"`
	StartingPrice  *decimal.Decimal `json:"startingPrice,omitempty"`
	Bedrooms       Text             `json:"bedrooms,omitempty"`
	CreatedAt      *Date            `json:"createdAt,omitempty"`
}

func (p *Project) ID() string      { return p.DocID }
func (p *Project) Validate() error { return requireDocID(p.DocID) }

func (p *Project) Field(key string) (any, bool) {
	return fields{}.
		str("name", p.Name).
		str("developer", p.Developer).
		str("projectStatus", p.ProjectStatus).
		str("location", p.Location).
		num("completionYear", p.CompletionYear).
		money("startingPrice", p.StartingPrice).
		text("bedrooms", p.Bedrooms).
		when("createdAt", p.CreatedAt).
		get(key)
}
