// Package calendar holds the committed booking model, the ephemeral range
// selection that precedes it, and the in-memory event collection the editor
// commits into.
package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/matthewbaird/scheduler/internal/ledger"
	"github.com/matthewbaird/scheduler/internal/schema"
	"github.com/matthewbaird/scheduler/internal/types"
)

// Action classifies a save as a create or an edit.
type Action string

const (
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
)

// EventID identifies an event. Hosts may use numeric ids; they are kept in
// their decimal string form. The empty id means "not yet created".
type EventID string

func (id EventID) IsZero() bool { return id == "" }

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (id *EventID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EventID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("event_id must be a string or number: %w", err)
		}
		*id = EventID(n.String())
		return nil
	}
}

// Event is a committed booking.
type Event struct {
	ID      EventID
	Title   string
	Start   time.Time
	End     time.Time
	Name    string
	Phone   string
	Comment string

	// Confirmed is tri-state: nil or false is tentative, true locks the
	// event and makes its editor read-only.
	Confirmed *bool

	Disabled  bool
	Editable  *bool
	Deletable *bool
	Draggable *bool

	Services    []ledger.LineItem
	TotalPrice  types.Decimal
	TotalIncome types.Decimal

	// Fields holds schema-declared custom fields and the resource
	// association, keyed by field name.
	Fields map[string]any
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func (e *Event) IsConfirmed() bool { return boolOr(e.Confirmed, false) }
func (e *Event) IsEditable() bool  { return boolOr(e.Editable, true) }
func (e *Event) IsDeletable() bool { return boolOr(e.Deletable, true) }
func (e *Event) IsDraggable() bool { return boolOr(e.Draggable, true) }

// Range returns the event's time span.
func (e *Event) Range() types.TimeRange {
	return types.TimeRange{Start: e.Start, End: e.End}
}

// Resource returns the value stored under the resource field.
func (e *Event) Resource(field string) any {
	return e.Fields[field]
}

// HasResource reports whether the event belongs to resourceID, treating a
// list-valued resource field as membership.
func (e *Event) HasResource(field, resourceID string) bool {
	switch v := e.Fields[field].(type) {
	case nil:
		return false
	case []any:
		return slices.ContainsFunc(v, func(x any) bool { return fmt.Sprint(x) == resourceID })
	case []string:
		return slices.Contains(v, resourceID)
	default:
		return fmt.Sprint(v) == resourceID
	}
}

// Lookup implements Source.
func (e *Event) Lookup(name string) (any, bool) {
	switch name {
	case schema.FieldEventID:
		return string(e.ID), !e.ID.IsZero()
	case schema.FieldConfirmed:
		return e.Confirmed, e.Confirmed != nil
	case schema.FieldName:
		return e.Name, e.Name != ""
	case schema.FieldPhone:
		return e.Phone, e.Phone != ""
	case schema.FieldStart:
		return e.Start, !e.Start.IsZero()
	case schema.FieldEnd:
		return e.End, !e.End.IsZero()
	case schema.FieldComment:
		return e.Comment, e.Comment != ""
	case schema.FieldTotalPrice:
		return e.TotalPrice, !e.TotalPrice.IsZero()
	case schema.FieldTotalIncome:
		return e.TotalIncome, !e.TotalIncome.IsZero()
	}
	v, ok := e.Fields[name]
	return v, ok && v != nil
}

// Identifier implements Source.
func (e *Event) Identifier() EventID { return e.ID }

// Span implements Source.
func (e *Event) Span() types.TimeRange { return e.Range() }

// Clone returns a deep-enough copy that the collection and the caller never
// share mutable state.
func (e Event) Clone() Event {
	out := e
	out.Services = slices.Clone(e.Services)
	out.Fields = maps.Clone(e.Fields)
	out.Confirmed = cloneBool(e.Confirmed)
	out.Editable = cloneBool(e.Editable)
	out.Deletable = cloneBool(e.Deletable)
	out.Draggable = cloneBool(e.Draggable)
	return out
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Bool returns a pointer to v, for the tri-state flags.
func Bool(v bool) *bool { return &v }

var reservedKeys = []string{
	"event_id", "title", "start", "end", "name", "phone", "comment", "confirmed",
	"disabled", "editable", "deletable", "draggable", "services", "totalPrice", "totalIncome",
}

// MarshalJSON writes the event as one flat object: built-in keys next to
// the custom fields.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+len(reservedKeys))
	for k, v := range e.Fields {
		out[k] = v
	}
	out["event_id"] = e.ID
	out["title"] = e.Title
	out["start"] = e.Start
	out["end"] = e.End
	out["name"] = e.Name
	out["phone"] = e.Phone
	out["comment"] = e.Comment
	out["disabled"] = e.Disabled
	out["services"] = e.Services
	out["totalPrice"] = e.TotalPrice
	out["totalIncome"] = e.TotalIncome
	if e.Services == nil {
		out["services"] = []ledger.LineItem{}
	}
	if e.Confirmed != nil {
		out["confirmed"] = *e.Confirmed
	}
	if e.Editable != nil {
		out["editable"] = *e.Editable
	}
	if e.Deletable != nil {
		out["deletable"] = *e.Deletable
	}
	if e.Draggable != nil {
		out["draggable"] = *e.Draggable
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat form produced by MarshalJSON. Unknown keys
// land in Fields.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Event
	decode := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("event %s: %w", key, err)
		}
		return nil
	}
	steps := []struct {
		key string
		dst any
	}{
		{"event_id", &out.ID},
		{"title", &out.Title},
		{"start", &out.Start},
		{"end", &out.End},
		{"name", &out.Name},
		{"phone", &out.Phone},
		{"comment", &out.Comment},
		{"confirmed", &out.Confirmed},
		{"disabled", &out.Disabled},
		{"editable", &out.Editable},
		{"deletable", &out.Deletable},
		{"draggable", &out.Draggable},
		{"services", &out.Services},
		{"totalPrice", &out.TotalPrice},
		{"totalIncome", &out.TotalIncome},
	}
	for _, s := range steps {
		if err := decode(s.key, s.dst); err != nil {
			return err
		}
	}
	if len(raw) > 0 {
		out.Fields = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("event %s: %w", k, err)
			}
			out.Fields[k] = val
		}
	}
	*e = out
	return nil
}

// SelectedRange is the tentative slot proposed by the grid before an event
// exists. It has no identity.
type SelectedRange struct {
	Start time.Time
	End   time.Time

	// ResourceField names the attribute ResourceID is reported under.
	ResourceField string
	ResourceID    any
}

// Lookup implements Source.
func (r *SelectedRange) Lookup(name string) (any, bool) {
	switch name {
	case schema.FieldStart:
		return r.Start, !r.Start.IsZero()
	case schema.FieldEnd:
		return r.End, !r.End.IsZero()
	}
	if r.ResourceField != "" && name == r.ResourceField && r.ResourceID != nil {
		return r.ResourceID, true
	}
	return nil, false
}

// Identifier implements Source; a range never carries one.
func (r *SelectedRange) Identifier() EventID { return "" }

// Span implements Source.
func (r *SelectedRange) Span() types.TimeRange {
	return types.TimeRange{Start: r.Start, End: r.End}
}

// Source is what an editor session is opened from: an existing event or a
// fresh range selection.
type Source interface {
	Lookup(name string) (any, bool)
	Identifier() EventID
	Span() types.TimeRange
}

// FormatResource renders a resource value as the string key used by
// select options.
func FormatResource(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
