package form

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField = errors.New("form: unknown field")
	ErrKindMismatch = errors.New("form: value kind does not match field")
)

// Store is the flat, ordered set of field records for one editor session,
// plus the one-way touched flag. It is not safe for concurrent use.
type Store struct {
	records map[string]*Record
	order   []string
	touched bool
}

func newStore(n int) *Store {
	return &Store{records: make(map[string]*Record, n), order: make([]string, 0, n)}
}

func (s *Store) add(r *Record) {
	s.records[r.Name] = r
	s.order = append(s.order, r.Name)
}

// SetField replaces one record's value and validity and leaves every other
// record untouched.
func (s *Store) SetField(name string, v Value, valid bool) error {
	r, ok := s.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if v == nil {
		v = Empty(r.Value.Kind())
	}
	if v.Kind() != r.Value.Kind() {
		return fmt.Errorf("%w: %s is %s, got %s", ErrKindMismatch, name, r.Value.Kind(), v.Kind())
	}
	r.Value = v
	r.Valid = valid
	return nil
}

// Set coerces raw to the field's kind and stores it.
func (s *Store) Set(name string, raw any, valid bool) error {
	r, ok := s.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	v, err := Coerce(r.Value.Kind(), raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return s.SetField(name, v, valid)
}

// MarkTouched flips the touched flag. There is no way back short of
// resolving a new Store.
func (s *Store) MarkTouched() { s.touched = true }

// Touched reports whether validation errors should be displayed.
func (s *Store) Touched() bool { return s.touched }

// ShowError reports whether name should render its error state.
func (s *Store) ShowError(name string) bool {
	r, ok := s.records[name]
	return ok && s.touched && !r.Valid
}

// Get returns a copy of one record.
func (s *Store) Get(name string) (Record, bool) {
	r, ok := s.records[name]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Value returns the field's value, or nil for unknown names.
func (s *Store) Value(name string) Value {
	if r, ok := s.records[name]; ok {
		return r.Value
	}
	return nil
}

// Has reports whether name is a field of this form.
func (s *Store) Has(name string) bool {
	_, ok := s.records[name]
	return ok
}

// Names returns field names in render order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Records returns copies of all records in render order.
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, *s.records[n])
	}
	return out
}

// Invalid returns the names of records that currently fail validity, in
// render order.
func (s *Store) Invalid() []string {
	var out []string
	for _, n := range s.order {
		if !s.records[n].Valid {
			out = append(out, n)
		}
	}
	return out
}

// Valid reports whether every record is valid.
func (s *Store) Valid() bool { return len(s.Invalid()) == 0 }

// Project flattens the form into name -> raw value.
func (s *Store) Project() map[string]any {
	out := make(map[string]any, len(s.order))
	for _, n := range s.order {
		out[n] = s.records[n].Value.Raw()
	}
	return out
}
