package models

import "github.com/shopspring/decimal"

// Agent is a brokerage agent.
type Agent struct {
	DocID     string   `json:"docId"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     Text     `json:"phone,omitempty"`
	Status    string   `json:"status,omitempty"`
	Team      string   `json:"team,omitempty"`
	Languages []string `json:"languages,omitempty"`
	JoinedAt  *Date    `json:"joinedAt,omitempty"`
}

func (a *Agent) ID() string      { return a.DocID }
func (a *Agent) Validate() error { return requireDocID(a.DocID) }

func (a *Agent) Field(key string) (any, bool) {
	return fields{}.
		str("name", a.Name).
		str("email", a.Email).
		text("phone", a.Phone).
		str("status", a.Status).
		str("team", a.Team).
		strs("languages", a.Languages).
		when("joinedAt", a.JoinedAt).
		get(key)
}

// Customer is a client or lead.
type Customer struct {
	DocID         string           `json:"docId"`
	Name          string           `json:"name,omitempty"`
	Email         string           `json:"email,omitempty"`
	Phone         Text             `json:"phone,omitempty"`
	CustomerType  string           `json:"customerType,omitempty"`
	Nationality   string           `json:"nationality,omitempty"`
	Source        string           `json:"source,omitempty"`
	LeadStatus    string           `json:"leadStatus,omitempty"`
	Budget        *decimal.Decimal `json:"budget,omitempty"`
	AssignedAgent *Ref             `json:"assignedAgent,omitempty"`
	CreatedAt     *Date            `json:"createdAt,omitempty"`
}

func (c *Customer) ID() string      { return c.DocID }
func (c *Customer) Validate() error { return requireDocID(c.DocID) }

func (c *Customer) Field(key string) (any, bool) {
	return fields{}.
		str("name", c.Name).
		str("email", c.Email).
		text("phone", c.Phone).
		str("customerType", c.CustomerType).
		str("nationality", c.Nationality).
		str("source", c.Source).
		str("leadStatus", c.LeadStatus).
		money("budget", c.Budget).
		ref("assignedAgent", c.AssignedAgent).
		when("createdAt", c.CreatedAt).
		get(key)
}
