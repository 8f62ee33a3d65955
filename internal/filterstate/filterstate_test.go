package filterstate

import (
	"encoding/json"
	"testing"
)

func TestInitialShape(t *testing.T) {
	t.Parallel()
	st := PropertySchema.Initial()
	for _, f := range []string{FieldBedrooms, FieldPrice, FieldArea} {
		v, ok := st.Get(f)
		if !ok || !v.IsRange() || !v.Range().IsOpen() {
			t.Errorf("%s = %+v, %v; want empty range", f, v, ok)
		}
	}
	for _, f := range []string{"listingDate", FieldStatus, "project"} {
		if _, ok := st.Get(f); ok {
			t.Errorf("%s defined in initial state", f)
		}
	}
}

func TestResetIdempotent(t *testing.T) {
	t.Parallel()
	s := NewStore(PropertySchema)
	s.Update(State{FieldStatus: Scalar("Ready"), "project": Set("Marina Gate")})
	s.UpdateRangeFilter(FieldPrice, Bounds(1e6, 2e6))

	s.Reset()
	once := s.State()
	s.Reset()
	twice := s.State()
	if !once.Equal(twice) {
		t.Fatalf("reset not idempotent: %v vs %v", once.JSON(), twice.JSON())
	}
	if !twice.Equal(PropertySchema.Initial()) {
		t.Fatalf("reset = %v, want initial", twice.JSON())
	}
}

func TestUpdateKeepsUntouchedFields(t *testing.T) {
	t.Parallel()
	s := NewStore(CustomerSchema)
	s.Update(State{"customerType": Scalar("Buyer")})
	s.Update(State{"leadStatus": Scalar("Hot")})

	st := s.State()
	if v, _ := st.Get("customerType"); v.String() != "Buyer" {
		t.Errorf("customerType = %q, want Buyer", v.String())
	}
	if v, _ := st.Get("leadStatus"); v.String() != "Hot" {
		t.Errorf("leadStatus = %q, want Hot", v.String())
	}
}

func TestUpdateIgnoresUndeclaredAndMismatched(t *testing.T) {
	t.Parallel()
	s := NewStore(ProjectSchema)
	before := s.State()
	s.Update(State{"colour": Scalar("blue"), "location": Scalar("Downtown")})
	if !s.State().Equal(before) {
		t.Fatalf("state changed: %v", s.State().JSON())
	}
}

func TestRangeUpdateGuard(t *testing.T) {
	t.Parallel()
	s := NewStore(PropertySchema)
	s.Update(State{"listingDate": Scalar("2025-01-01")})
	before := s.State()

	s.UpdateRangeFilter("listingDate", Bounds(1, 2))
	if !s.State().Equal(before) {
		t.Fatalf("range applied to scalar field: %v", s.State().JSON())
	}

	// Undefined scalar field stays undefined.
	s.UpdateRangeFilter("vacancy", Bounds(1, 2))
	if _, ok := s.State().Get("vacancy"); ok {
		t.Fatal("vacancy became defined")
	}

	s.UpdateRangeFilter(FieldBedrooms, Bounds(2, 4))
	got, _ := s.State().Get(FieldBedrooms)
	r := got.Range()
	if r.Min == nil || *r.Min != 2 || r.Max == nil || *r.Max != 4 {
		t.Fatalf("bedrooms = %+v", r)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	st := SubDevelopmentSchema.Initial()
	next := Reduce(SubDevelopmentSchema, st, SetArray{Field: "facilities", Values: []string{"Pool"}})
	if _, ok := st.Get("facilities"); ok {
		t.Fatal("input state mutated")
	}
	if v, _ := next.Get("facilities"); !v.Contains("Pool") {
		t.Fatalf("facilities = %v", v.Strings())
	}
}

func TestToggle(t *testing.T) {
	t.Parallel()
	s := NewStore(PropertySchema)
	s.Toggle("view", "Sea")
	s.Toggle("view", "Park")
	s.Toggle("view", "Sea")
	v, _ := s.State().Get("view")
	if got := v.Strings(); len(got) != 1 || got[0] != "Park" {
		t.Fatalf("view = %v, want [Park]", got)
	}
	// SetArray on a scalar field is a no-op.
	s.SetArray(FieldStatus, []string{"x"})
	if _, ok := s.State().Get(FieldStatus); ok {
		t.Fatal("status set through SetArray")
	}
}

func TestQueryDropsEmptyFields(t *testing.T) {
	t.Parallel()
	s := NewStore(PropertySchema)
	s.Update(State{FieldStatus: Scalar("Available"), FieldSearch: Scalar("")})
	s.SetArray("view", nil)
	s.UpdateRangeFilter(FieldPrice, Bounds(1e6, 2e6))
	q := s.State().Query()
	if len(q) != 2 || q[FieldStatus] != "Available" {
		t.Fatalf("Query() = %v", q)
	}
	if _, ok := q[FieldPrice].(Range); !ok {
		t.Fatalf("price = %#v", q[FieldPrice])
	}
}

func TestSchemaFor(t *testing.T) {
	t.Parallel()
	if SchemaFor("customer").Domain != "customer" {
		t.Fatal("customer schema not found")
	}
	if _, ok := SchemaFor("agent").Kind(FieldStatus); !ok {
		t.Fatal("basic schema lacks status")
	}
}

func TestSchemaDecode(t *testing.T) {
	t.Parallel()
	st := PropertySchema.Decode(map[string]json.RawMessage{
		FieldStatus:    json.RawMessage(`"Available"`),
		"propertyType": json.RawMessage(`["Villa","Apartment"]`),
		FieldPrice:     json.RawMessage(`{"min":1000000}`),
		FieldBedrooms:  json.RawMessage(`3`),
		"vacancy":      json.RawMessage(`2`),
		"unknown":      json.RawMessage(`"x"`),
	})
	if v, _ := st.Get(FieldStatus); v.String() != "Available" {
		t.Errorf("status = %q", v.String())
	}
	if v, _ := st.Get("propertyType"); len(v.Strings()) != 2 {
		t.Errorf("propertyType = %v", v.Strings())
	}
	if v, ok := st.Get(FieldPrice); !ok || v.Range().Min == nil || *v.Range().Min != 1000000 || v.Range().Max != nil {
		t.Errorf("price = %+v", v.Range())
	}
	if _, ok := st.Get(FieldBedrooms); ok {
		t.Error("scalar accepted for a range field")
	}
	if v, _ := st.Get("vacancy"); v.String() != "2" {
		t.Errorf("numeric scalar = %q, want \"2\"", v.String())
	}
	if _, ok := st.Get("unknown"); ok {
		t.Error("undeclared field decoded")
	}
}
