package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"EstateDesk/api/constants"
	"EstateDesk/internal/models"
)

var (
	ErrNotFound      = errors.New("cms: not found")
	ErrUnknownDomain = errors.New("cms: unknown domain")
)

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLErrors is returned when a query answers 200 with errors.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, len(e))
	for i, m := range e {
		msgs[i] = m.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Query runs a GraphQL document and decodes its "data" member into out.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	if c.graphqlURL == "" {
		return ErrNoServer
	}
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("graphql encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set(constants.ContentTypeText, constants.ContentTypeJSON)

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors GraphQLErrors   `json:"errors"`
	}
	if err := c.send(req, &envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return envelope.Errors
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("graphql decode: %w", err)
	}
	return nil
}

const refFields = "{ docId name phone email }"

const propertyFields = `docId unitNumber propertyType bedrooms builtUpArea views floor status
	vacateDate listingDate primaryPrice resalePrice premiumAndLoss rent createdAt
	project ` + refFields + ` masterDevelopment ` + refFields + ` subDevelopment ` + refFields + `
	owner ` + refFields + ` agent ` + refFields

// GetProperty loads one property by document id.
func (c *Client) GetProperty(ctx context.Context, docID string) (*models.Property, error) {
	q := `query GetProperty($docId: String!) { getProperty(docId: $docId) { ` + propertyFields + ` } }`
	var out struct {
		GetProperty *models.Property `json:"getProperty"`
	}
	if err := c.Query(ctx, q, map[string]any{"docId": docID}, &out); err != nil {
		return nil, err
	}
	if out.GetProperty == nil {
		return nil, ErrNotFound
	}
	if err := out.GetProperty.Validate(); err != nil {
		return nil, err
	}
	return out.GetProperty, nil
}

// listQuery names the GraphQL list field and selection of a domain.
type listQuery struct {
	field     string
	selection string
}

var listQueries = map[string]listQuery{
	"property":          {"getProperties", propertyFields},
	"masterDevelopment": {"getMasterDevelopments", "docId name developer location status totalUnits createdAt"},
	"subDevelopment":    {"getSubDevelopments", "docId name plotStatus facilities builtUpArea plotArea createdAt masterDevelopment " + refFields},
	"project":           {"getProjects", "docId name developer projectStatus location completionYear startingPrice bedrooms createdAt"},
	"customer":          {"getCustomers", "docId name email phone customerType nationality source leadStatus budget createdAt assignedAgent " + refFields},
	"agent":             {"getAgents", "docId name email phone status team languages joinedAt"},
	"listing":           {"getListings", "docId unitNumber listingType price status listedAt property " + refFields + " agent " + refFields},
	"contract":          {"getContracts", "docId contractNumber contractType value startDate endDate status property " + refFields + " customer " + refFields},
	"transaction":       {"getTransactions", "docId reference amount method status paidAt contract " + refFields},
}

// Domains lists every domain with a list query.
func Domains() []string {
	out := make([]string, 0, len(listQueries))
	for d := range listQueries {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ListQuery is one page request of a domain list.
type ListQuery struct {
	Filters map[string]any
	Search  string
	Page    int
	Limit   int
}

// ListResult is a page of raw documents plus the unpaged total.
type ListResult struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
}

// List fetches one page of a domain. Items are left raw for the caller to
// decode and validate.
func (c *Client) List(ctx context.Context, domain string, lq ListQuery) (*ListResult, error) {
	spec, ok := listQueries[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	q := fmt.Sprintf(`query List($filters: JSON, $search: String, $page: Int, $limit: Int) {
	list: %s(filters: $filters, search: $search, page: $page, limit: $limit) { total items { %s } }
}`, spec.field, spec.selection)
	vars := map[string]any{
		"filters": lq.Filters,
		"search":  lq.Search,
		"page":    lq.Page,
		"limit":   lq.Limit,
	}
	var out struct {
		List *ListResult `json:"list"`
	}
	if err := c.Query(ctx, q, vars, &out); err != nil {
		return nil, err
	}
	if out.List == nil {
		return &ListResult{}, nil
	}
	return out.List, nil
}
