package filterstate

import "sort"

// Field declares one filter field.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the declared shape of a domain's filter record.
type Schema struct {
	Domain string
	Fields []Field
}

// Kind returns the declared kind of field.
func (s Schema) Kind(field string) (Kind, bool) {
	for _, f := range s.Fields {
		if f.Name == field {
			return f.Kind, true
		}
	}
	return 0, false
}

// Names returns the declared field names, sorted.
func (s Schema) Names() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

// Initial returns the declared initial record: range fields hold an empty
// range, everything else is undefined.
func (s Schema) Initial() State {
	st := State{}
	for _, f := range s.Fields {
		if f.Kind == KindRange {
			st[f.Name] = RangeValue(Range{})
		}
	}
	return st
}

// Common field names shared by several domains.
const (
	FieldSearch    = "search"
	FieldStatus    = "status"
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
	FieldBedrooms  = "bedrooms"
	FieldPrice     = "price"
	FieldArea      = "area"
)

func withDates(fields ...Field) []Field {
	return append(fields,
		Field{FieldSearch, KindScalar},
		Field{FieldStartDate, KindScalar},
		Field{FieldEndDate, KindScalar},
	)
}

var (
	PropertySchema = Schema{Domain: "property", Fields: withDates(
		Field{FieldStatus, KindScalar},
		Field{"propertyType", KindSet},
		Field{"project", KindSet},
		Field{"masterDevelopment", KindScalar},
		Field{"subDevelopment", KindScalar},
		Field{"view", KindSet},
		Field{"listingDate", KindScalar},
		Field{"vacancy", KindScalar},
		Field{FieldBedrooms, KindRange},
		Field{FieldPrice, KindRange},
		Field{FieldArea, KindRange},
	)}

	MasterDevelopmentSchema = Schema{Domain: "masterDevelopment", Fields: withDates(
		Field{"developer", KindScalar},
		Field{"location", KindSet},
		Field{FieldStatus, KindScalar},
		Field{"totalUnits", KindRange},
	)}

	SubDevelopmentSchema = Schema{Domain: "subDevelopment", Fields: withDates(
		Field{"masterDevelopment", KindScalar},
		Field{"plotStatus", KindSet},
		Field{"facilities", KindSet},
		Field{"builtUpArea", KindRange},
		Field{"plotArea", KindRange},
	)}

	CustomerSchema = Schema{Domain: "customer", Fields: withDates(
		Field{"customerType", KindScalar},
		Field{"nationality", KindSet},
		Field{"source", KindSet},
		Field{"leadStatus", KindScalar},
		Field{"budget", KindRange},
	)}

	ProjectSchema = Schema{Domain: "project", Fields: withDates(
		Field{"developer", KindScalar},
		Field{"projectStatus", KindScalar},
		Field{"location", KindSet},
		Field{"completionYear", KindRange},
		Field{FieldPrice, KindRange},
		Field{FieldBedrooms, KindRange},
	)}
)

// BasicSchema is the minimal status/search/date record used by list pages
// without a dedicated store.
func BasicSchema(domain string) Schema {
	return Schema{Domain: domain, Fields: withDates(Field{FieldStatus, KindScalar})}
}

// SchemaFor returns the dedicated schema of a domain, or BasicSchema.
func SchemaFor(domain string) Schema {
	for _, s := range []Schema{PropertySchema, MasterDevelopmentSchema, SubDevelopmentSchema, CustomerSchema, ProjectSchema} {
		if s.Domain == domain {
			return s
		}
	}
	return BasicSchema(domain)
}
