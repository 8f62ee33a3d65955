package filterstate

// Store holds one page's filter record. Calls are applied in order; it is
// not safe for concurrent use.
type Store struct {
	schema Schema
	state  State
}

// NewStore returns a store initialised to the schema's initial record.
func NewStore(schema Schema) *Store {
	return &Store{schema: schema, state: schema.Initial()}
}

func (s *Store) Schema() Schema { return s.schema }

// State returns a copy of the current record.
func (s *Store) State() State { return s.state.Clone() }

func (s *Store) Dispatch(a Action) { s.state = Reduce(s.schema, s.state, a) }

func (s *Store) Update(partial State) { s.Dispatch(Update{Partial: partial}) }

func (s *Store) SetArray(field string, values []string) {
	s.Dispatch(SetArray{Field: field, Values: values})
}

func (s *Store) UpdateRangeFilter(field string, r Range) {
	s.Dispatch(UpdateRange{Field: field, Range: r})
}

func (s *Store) Toggle(field, value string) { s.state = Toggle(s.schema, s.state, field, value) }

func (s *Store) Reset() { s.Dispatch(Reset{}) }
