// Package form derives the editor's typed form state from a field schema and
// an existing event or range selection, and holds that state while the user
// edits it.
package form

import (
	"fmt"
	"time"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/schema"
)

// Record is one field's current value and validity plus what the render
// layer needs to draw it.
type Record struct {
	Name    string
	Value   Value
	Valid   bool
	Type    schema.FieldType
	Config  schema.FieldConfig
	Options []schema.Option
}

// Required reports whether the field must be present to save.
func (r Record) Required() bool { return r.Config.Required }

// KindOf returns the value variant a declaration resolves to.
func KindOf(d *schema.FieldDecl) Kind {
	switch d.Name {
	case schema.FieldConfirmed:
		return KindFlag
	case schema.FieldEventID:
		return KindText
	}
	switch d.Type {
	case schema.FieldInput, schema.FieldTextarea:
		return KindText
	case schema.FieldDate:
		return KindTimestamp
	case schema.FieldCurrency:
		return KindNumber
	case schema.FieldSelect:
		if d.Config.Multiple {
			return KindMultiChoice
		}
		return KindChoice
	default:
		if d.Config.Multiple {
			return KindMultiChoice
		}
		return KindOpaque
	}
}

// ResolveOptions tunes Resolve.
type ResolveOptions struct {
	// Now supplies the start/end fallback when neither source nor default
	// provides one. Defaults to time.Now.
	Now func() time.Time
}

// Resolve builds the initial Store for s. src may be nil (a blank form,
// used to reset the editor). Resolution per field is: value on src, then
// the declared default, then the kind's empty sentinel. Required fields are
// valid iff the source or default value is present; other fields are
// always valid. Resolve has no side effects.
func Resolve(s *schema.Schema, src calendar.Source, opts ResolveOptions) (*Store, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	st := newStore(len(s.Names()))
	for _, name := range s.Names() {
		d := s.Field(name)
		kind := KindOf(d)

		var fromSource Value = Empty(kind)
		if src != nil {
			if raw, ok := src.Lookup(name); ok {
				v, err := Coerce(kind, raw)
				if err != nil {
					return nil, fmt.Errorf("resolve %s from source: %w", name, err)
				}
				fromSource = v
			}
		}
		fromDefault, err := Coerce(kind, d.Default)
		if err != nil {
			return nil, fmt.Errorf("resolve %s default: %w", name, err)
		}

		value := Empty(kind)
		switch {
		case fromSource.Present():
			value = fromSource
		case fromDefault.Present():
			value = fromDefault
		case name == schema.FieldStart || name == schema.FieldEnd:
			value = Timestamp(opts.Now())
		}

		valid := true
		if d.Config.Required {
			valid = fromSource.Present() || fromDefault.Present()
		}

		st.add(&Record{
			Name:    name,
			Value:   value,
			Valid:   valid,
			Type:    d.Type,
			Config:  d.Config,
			Options: d.Options,
		})
	}
	return st, nil
}
